/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package keygencmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
	"github.com/absauthn/absauthn/pkg/crypto/primitive/absfp256bn"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
	"github.com/absauthn/absauthn/pkg/storage/jsonfile"
	"github.com/absauthn/absauthn/pkg/storage/keyfile"
	"github.com/absauthn/absauthn/pkg/storage/profile"
)

func TestKeygenCmdContents(t *testing.T) {
	keygenCmd := Cmd()

	require.Equal(t, "keygen", keygenCmd.Use)
	require.NotNil(t, keygenCmd.Flag(trustedKeyFileFlagName))
	require.NotNil(t, keygenCmd.Flag(attesterKeyFileFlagName))
}

func TestKeygenWritesTrustedKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.tpk")

	keygenCmd := Cmd()
	keygenCmd.SetArgs([]string{"--" + trustedKeyFileFlagName, path})

	require.NoError(t, keygenCmd.Execute())

	bundle, err := keyfile.NewStore().Load(path)
	require.NoError(t, err)

	_, err = absfp256bn.ParseIssuerPublicKey(bundle)
	require.NoError(t, err)
}

func TestKeygenWritesAttesterKeyFile(t *testing.T) {
	dir := t.TempDir()
	trustedPath := filepath.Join(dir, "server.tpk")
	attesterPath := filepath.Join(dir, "attester.key")

	keygenCmd := Cmd()
	keygenCmd.SetArgs([]string{
		"--" + trustedKeyFileFlagName, trustedPath,
		"--" + attesterKeyFileFlagName, attesterPath,
		"--" + attributesFlagName, "age=30,clearance=2",
	})

	require.NoError(t, keygenCmd.Execute())

	bundle, err := keyfile.NewStore().Load(attesterPath)
	require.NoError(t, err)

	pub, err := absfp256bn.ParsePublicKey(bundle)
	require.NoError(t, err)
	require.Equal(t, keybundle.AttributeMap{"age": 30, "clearance": 2}, pub.Attributes)

	sk := bundle.Get(componentSigningKey)
	require.NotNil(t, sk)
	require.Equal(t, curve.Scalar, sk.Type())
}

func TestKeygenRegistersUser(t *testing.T) {
	dir := t.TempDir()
	trustedPath := filepath.Join(dir, "server.tpk")
	dbPath := filepath.Join(dir, "db")

	keygenCmd := Cmd()
	keygenCmd.SetArgs([]string{
		"--" + trustedKeyFileFlagName, trustedPath,
		"--" + usernameFlagName, "alice",
		"--" + policyFlagName, "age>=18",
		"--" + attributesFlagName, "age=30",
		"--" + databaseURLFlagName, dbPath,
	})

	require.NoError(t, keygenCmd.Execute())

	provider, err := jsonfile.NewProvider(dbPath)
	require.NoError(t, err)

	profiles, err := profile.NewStore(provider)
	require.NoError(t, err)

	record, err := profiles.Get("alice")
	require.NoError(t, err)
	require.Equal(t, "age>=18", record.Policy)
	require.Len(t, record.Attestation, 1)
}

func TestKeygenMissingTrustedKeyPath(t *testing.T) {
	keygenCmd := Cmd()
	keygenCmd.SetArgs([]string{})

	err := keygenCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), trustedKeyFileFlagName)
}

func TestKeygenRegisterRequiresDatabaseURL(t *testing.T) {
	keygenCmd := Cmd()
	keygenCmd.SetArgs([]string{
		"--" + trustedKeyFileFlagName, filepath.Join(t.TempDir(), "server.tpk"),
		"--" + usernameFlagName, "alice",
	})

	err := keygenCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), databaseURLFlagName)
}

func TestParseAttributes(t *testing.T) {
	attributes, err := parseAttributes("age=30,clearance=2")
	require.NoError(t, err)
	require.Equal(t, keybundle.AttributeMap{"age": 30, "clearance": 2}, attributes)

	attributes, err = parseAttributes("")
	require.NoError(t, err)
	require.Nil(t, attributes)

	_, err = parseAttributes("age")
	require.Error(t, err)

	_, err = parseAttributes("age=old")
	require.Error(t, err)
}
