/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"crypto/sha256"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/absauthn/absauthn/pkg/crypto/primitive/absfp256bn"
	"github.com/absauthn/absauthn/pkg/storage/keyfile"
)

type mockServer struct{}

func (s *mockServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	return nil
}

func writeTrustedKeyFile(t *testing.T) string {
	t.Helper()

	issuerPub, _, err := absfp256bn.GenerateIssuerKeyPair(sha256.New, nil)
	require.NoError(t, err)

	bundle, err := issuerPub.ToKeyBundle()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "server.tpk")
	require.NoError(t, keyfile.NewStore().Save(bundle, path))

	return path
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	require.Equal(t, "start", startCmd.Use)
	require.Equal(t, "Start the server", startCmd.Short)

	checkFlagPropertiesCorrect(t, startCmd, hostFlagName, hostFlagShorthand, hostFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, databaseTypeFlagName, databaseTypeFlagShorthand, databaseTypeFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, trustedKeyFileFlagName, trustedKeyFileFlagShorthand,
		trustedKeyFileFlagUsage)
}

func checkFlagPropertiesCorrect(t *testing.T, cmd *cobra.Command, flagName, flagShorthand, flagUsage string) {
	t.Helper()

	flag := cmd.Flag(flagName)

	require.NotNil(t, flag)
	require.Equal(t, flagName, flag.Name)
	require.Equal(t, flagShorthand, flag.Shorthand)
	require.Equal(t, flagUsage, flag.Usage)
	require.Empty(t, flag.Value.String())
}

func TestStartCmdWithBlankHostArg(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	path := writeTrustedKeyFile(t)

	startCmd.SetArgs([]string{
		"--" + hostFlagName, "",
		"--" + databaseTypeFlagName, "mem",
		"--" + trustedKeyFileFlagName, path,
	})

	err = startCmd.Execute()
	require.Equal(t, errMissingHost, err)
}

func TestStartCmdWithMissingHostArg(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "api-host")
}

func TestStartCmdValidArgs(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	path := writeTrustedKeyFile(t)

	startCmd.SetArgs([]string{
		"--" + hostFlagName, "localhost:8080",
		"--" + databaseTypeFlagName, "mem",
		"--" + trustedKeyFileFlagName, path,
	})

	require.NoError(t, startCmd.Execute())
}

func TestStartCmdValidArgsEnvVariable(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	path := writeTrustedKeyFile(t)

	t.Setenv(hostEnvKey, "localhost:8080")
	t.Setenv(databaseTypeEnvKey, "mem")
	t.Setenv(trustedKeyFileEnvKey, path)

	require.NoError(t, startCmd.Execute())
}

func TestStartCmdWithJSONFileStorage(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	path := writeTrustedKeyFile(t)

	startCmd.SetArgs([]string{
		"--" + hostFlagName, "localhost:8080",
		"--" + databaseTypeFlagName, "jsonfile",
		"--" + databaseURLFlagName, t.TempDir(),
		"--" + trustedKeyFileFlagName, path,
	})

	require.NoError(t, startCmd.Execute())
}

func TestStartCmdWithInvalidDBType(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	path := writeTrustedKeyFile(t)

	startCmd.SetArgs([]string{
		"--" + hostFlagName, "localhost:8080",
		"--" + databaseTypeFlagName, "oracle",
		"--" + databaseTimeoutFlagName, "1",
		"--" + trustedKeyFileFlagName, path,
	})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "database type not set to a valid type")
}

func TestStartCmdWithMissingTrustedKeyFile(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{
		"--" + hostFlagName, "localhost:8080",
		"--" + databaseTypeFlagName, "mem",
		"--" + databaseTimeoutFlagName, "1",
		"--" + trustedKeyFileFlagName, filepath.Join(t.TempDir(), "absent.tpk"),
	})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "trusted key file")
}

func TestStartCmdWithBadProtocolParams(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	path := writeTrustedKeyFile(t)

	startCmd.SetArgs([]string{
		"--" + hostFlagName, "localhost:8080",
		"--" + databaseTypeFlagName, "mem",
		"--" + trustedKeyFileFlagName, path,
		"--" + challengeSizeFlagName, "lots",
	})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "challenge-size")
}

func TestStartCmdWithTooSmallChallengeSize(t *testing.T) {
	path := writeTrustedKeyFile(t)

	for _, size := range []string{"0", "8", "-1"} {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		startCmd.SetArgs([]string{
			"--" + hostFlagName, "localhost:8080",
			"--" + databaseTypeFlagName, "mem",
			"--" + trustedKeyFileFlagName, path,
			"--" + challengeSizeFlagName, size,
		})

		err = startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "minimum")
	}
}

func TestStartCmdWithBadLogLevel(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{
		"--" + hostFlagName, "localhost:8080",
		"--" + databaseTypeFlagName, "mem",
		"--" + logLevelFlagName, "SHOUTING",
	})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse log level")
}

func TestAuthorizationMiddleware(t *testing.T) {
	handled := false

	handler := authorizationMiddleware("secret")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handled = true
		}))

	req, err := http.NewRequest(http.MethodPost, "/assertion/options", nil)
	require.NoError(t, err)

	rw := &headerOnlyResponseWriter{header: http.Header{}}

	req.Header.Set("Authorization", "Bearer wrong")
	handler.ServeHTTP(rw, req)
	require.False(t, handled)
	require.Equal(t, http.StatusUnauthorized, rw.status)

	req.Header.Set("Authorization", "Bearer secret")
	handler.ServeHTTP(rw, req)
	require.True(t, handled)
}

type headerOnlyResponseWriter struct {
	header http.Header
	status int
}

func (w *headerOnlyResponseWriter) Header() http.Header {
	return w.header
}

func (w *headerOnlyResponseWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

func (w *headerOnlyResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
}
