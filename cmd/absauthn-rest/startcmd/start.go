/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/absauthn/absauthn/pkg/common/log"
	"github.com/absauthn/absauthn/pkg/controller"
	cmdassertion "github.com/absauthn/absauthn/pkg/controller/command/assertion"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
	protocol "github.com/absauthn/absauthn/pkg/protocol/assertion"
	"github.com/absauthn/absauthn/pkg/storage"
	"github.com/absauthn/absauthn/pkg/storage/jsonfile"
	"github.com/absauthn/absauthn/pkg/storage/keyfile"
	"github.com/absauthn/absauthn/pkg/storage/mem"
	"github.com/absauthn/absauthn/pkg/storage/profile"
)

const (
	// api host flag.
	hostFlagName      = "api-host"
	hostEnvKey        = "ABSAUTHN_API_HOST"
	hostFlagShorthand = "a"
	hostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + hostEnvKey

	// api token flag.
	tokenFlagName      = "api-token"
	tokenEnvKey        = "ABSAUTHN_API_TOKEN" // nolint:gosec
	tokenFlagShorthand = "t"
	tokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + tokenEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "ABSAUTHN_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database to use for profiles and pending challenges. " +
		"Supported options: mem, jsonfile. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databaseURLFlagName      = "database-url"
	databaseURLEnvKey        = "ABSAUTHN_DATABASE_URL"
	databaseURLFlagShorthand = "v"
	databaseURLFlagUsage     = "The root directory of the database. Not needed if using memstore." +
		" Alternatively, this can be set with the following environment variable: " + databaseURLEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "ABSAUTHN_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	// trusted key file flag.
	trustedKeyFileFlagName      = "trusted-key-file"
	trustedKeyFileEnvKey        = "ABSAUTHN_TRUSTED_KEY_FILE"
	trustedKeyFileFlagShorthand = "k"
	trustedKeyFileFlagUsage     = "Path of the server's trusted key file." +
		" Alternatively, this can be set with the following environment variable: " + trustedKeyFileEnvKey

	// relying party id flag.
	rpIDFlagName  = "rp-id"
	rpIDEnvKey    = "ABSAUTHN_RP_ID"
	rpIDFlagUsage = "Relying party identifier. Defaults to " + rpIDDefault + " if not set." +
		" Alternatively, this can be set with the following environment variable: " + rpIDEnvKey
	rpIDDefault = "localhost"

	// relying party origin flag.
	rpOriginFlagName  = "rp-origin"
	rpOriginEnvKey    = "ABSAUTHN_RP_ORIGIN"
	rpOriginFlagUsage = "Origin the client must present in its client data. Defaults to " + rpOriginDefault +
		" if not set. Alternatively, this can be set with the following environment variable: " + rpOriginEnvKey
	rpOriginDefault = "https://localhost:3000"

	// challenge size flag.
	challengeSizeFlagName  = "challenge-size"
	challengeSizeEnvKey    = "ABSAUTHN_CHALLENGE_SIZE"
	challengeSizeFlagUsage = "Number of random bytes in an issued challenge. Defaults to " +
		challengeSizeDefault + " if not set." +
		" Alternatively, this can be set with the following environment variable: " + challengeSizeEnvKey
	challengeSizeDefault = "32"
	minChallengeSize     = 16

	// assertion timeout flag.
	assertionTimeoutFlagName  = "assertion-timeout"
	assertionTimeoutEnvKey    = "ABSAUTHN_ASSERTION_TIMEOUT"
	assertionTimeoutFlagUsage = "Timeout in milliseconds advertised in issued options. Defaults to " +
		assertionTimeoutDefault + " if not set." +
		" Alternatively, this can be set with the following environment variable: " + assertionTimeoutEnvKey
	assertionTimeoutDefault = "60000"

	// user verification flag.
	userVerificationFlagName  = "user-verification"
	userVerificationEnvKey    = "ABSAUTHN_USER_VERIFICATION"
	userVerificationFlagUsage = "User verification requirement advertised in issued options. Defaults to " +
		userVerificationDefault + " if not set." +
		" Alternatively, this can be set with the following environment variable: " + userVerificationEnvKey
	userVerificationDefault = "preferred"

	// log level.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "ABSAUTHN_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey

	// tls cert file flag.
	tlsCertFileFlagName      = "tls-cert-file"
	tlsCertFileEnvKey        = "ABSAUTHN_TLS_CERT_FILE"
	tlsCertFileFlagShorthand = "c"
	tlsCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + tlsCertFileEnvKey

	// tls key file flag.
	tlsKeyFileFlagName      = "tls-key-file"
	tlsKeyFileEnvKey        = "ABSAUTHN_TLS_KEY_FILE"
	tlsKeyFileFlagShorthand = "e"
	tlsKeyFileFlagUsage     = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + tlsKeyFileEnvKey

	databaseTypeMemOption      = "mem"
	databaseTypeJSONFileOption = "jsonfile"
)

var errMissingHost = errors.New("host not provided")

var logger = log.New("absauthn/startcmd") //nolint:gochecknoglobals

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(url string) (storage.Provider, error){
	databaseTypeMemOption: func(_ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeJSONFileOption: func(path string) (storage.Provider, error) {
		return jsonfile.NewProvider(path)
	},
}

type dbParam struct {
	dbType  string
	url     string
	timeout uint64
}

type serverParameters struct {
	server         server
	host           string
	token          string
	dbParam        *dbParam
	trustedKeyPath string
	protocolCfg    protocol.Config
	tlsCertFile    string
	tlsKeyFile     string
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router)
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command { //nolint: funlen
	return &cobra.Command{
		Use:   "start",
		Short: "Start the server",
		Long:  `Start the assertion controller server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// log level
			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogLevel(logLevel)
			if err != nil {
				return err
			}

			host, err := getUserSetVar(cmd, hostFlagName, hostEnvKey, false)
			if err != nil {
				return err
			}

			token, err := getUserSetVar(cmd, tokenFlagName, tokenEnvKey, true)
			if err != nil {
				return err
			}

			dbParam, err := getDBParam(cmd)
			if err != nil {
				return err
			}

			trustedKeyPath, err := getUserSetVar(cmd, trustedKeyFileFlagName, trustedKeyFileEnvKey, false)
			if err != nil {
				return err
			}

			protocolCfg, err := getProtocolConfig(cmd)
			if err != nil {
				return err
			}

			tlsCertFile, err := getUserSetVar(cmd, tlsCertFileFlagName, tlsCertFileEnvKey, true)
			if err != nil {
				return err
			}

			tlsKeyFile, err := getUserSetVar(cmd, tlsKeyFileFlagName, tlsKeyFileEnvKey, true)
			if err != nil {
				return err
			}

			parameters := &serverParameters{
				server:         server,
				host:           host,
				token:          token,
				dbParam:        dbParam,
				trustedKeyPath: trustedKeyPath,
				protocolCfg:    protocolCfg,
				tlsCertFile:    tlsCertFile,
				tlsKeyFile:     tlsKeyFile,
			}

			return startServer(parameters)
		},
	}
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.url, err = getUserSetVar(cmd, databaseURLFlagName, databaseURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := getUserSetVar(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db timeout %s: %w", dbTimeout, err)
	}

	dbParam.timeout = uint64(t)

	return dbParam, nil
}

func getProtocolConfig(cmd *cobra.Command) (protocol.Config, error) {
	cfg := protocol.Config{}

	rpID, err := getUserSetVar(cmd, rpIDFlagName, rpIDEnvKey, true)
	if err != nil {
		return cfg, err
	}

	if rpID == "" {
		rpID = rpIDDefault
	}

	rpOrigin, err := getUserSetVar(cmd, rpOriginFlagName, rpOriginEnvKey, true)
	if err != nil {
		return cfg, err
	}

	if rpOrigin == "" {
		rpOrigin = rpOriginDefault
	}

	challengeSize, err := getIntVar(cmd, challengeSizeFlagName, challengeSizeEnvKey, challengeSizeDefault)
	if err != nil {
		return cfg, err
	}

	if challengeSize < minChallengeSize {
		return cfg, fmt.Errorf("%s value %d is below the minimum of %d bytes",
			challengeSizeFlagName, challengeSize, minChallengeSize)
	}

	timeout, err := getIntVar(cmd, assertionTimeoutFlagName, assertionTimeoutEnvKey, assertionTimeoutDefault)
	if err != nil {
		return cfg, err
	}

	userVerification, err := getUserSetVar(cmd, userVerificationFlagName, userVerificationEnvKey, true)
	if err != nil {
		return cfg, err
	}

	if userVerification == "" {
		userVerification = userVerificationDefault
	}

	cfg.RPID = rpID
	cfg.RPOrigin = rpOrigin
	cfg.ChallengeSize = challengeSize
	cfg.Timeout = timeout
	cfg.UserVerification = userVerification

	return cfg, nil
}

func getIntVar(cmd *cobra.Command, flagName, envKey, defaultValue string) (int, error) {
	value, err := getUserSetVar(cmd, flagName, envKey, true)
	if err != nil {
		return 0, err
	}

	if value == "" {
		value = defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s value %s: %w", flagName, value, err)
	}

	return n, nil
}

func createFlags(startCmd *cobra.Command) {
	// api host flag
	startCmd.Flags().StringP(hostFlagName, hostFlagShorthand, "", hostFlagUsage)

	// api token flag
	startCmd.Flags().StringP(tokenFlagName, tokenFlagShorthand, "", tokenFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// db url
	startCmd.Flags().StringP(databaseURLFlagName, databaseURLFlagShorthand, "", databaseURLFlagUsage)

	// db timeout
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// trusted key file
	startCmd.Flags().StringP(trustedKeyFileFlagName, trustedKeyFileFlagShorthand, "", trustedKeyFileFlagUsage)

	// relying party parameters
	startCmd.Flags().StringP(rpIDFlagName, "", "", rpIDFlagUsage)
	startCmd.Flags().StringP(rpOriginFlagName, "", "", rpOriginFlagUsage)
	startCmd.Flags().StringP(challengeSizeFlagName, "", "", challengeSizeFlagUsage)
	startCmd.Flags().StringP(assertionTimeoutFlagName, "", "", assertionTimeoutFlagUsage)
	startCmd.Flags().StringP(userVerificationFlagName, "", "", userVerificationFlagUsage)

	// log level
	startCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(tlsCertFileFlagName, tlsCertFileFlagShorthand, "", tlsCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(tlsKeyFileFlagName, tlsKeyFileFlagShorthand, "", tlsKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

// serviceProvider wires the storage, profile and trusted-key collaborators
// of the assertion service.
type serviceProvider struct {
	storageProvider storage.Provider
	profiles        *profile.Store
	trustedKeys     protocol.TrustedKeyStore
}

func (p *serviceProvider) StorageProvider() storage.Provider         { return p.storageProvider }
func (p *serviceProvider) ProfileStore() *profile.Store              { return p.profiles }
func (p *serviceProvider) TrustedKeyStore() protocol.TrustedKeyStore { return p.trustedKeys }

// controllerProvider exposes the built service to the controller layer.
type controllerProvider struct {
	service *protocol.Service
}

func (p *controllerProvider) AssertionService() cmdassertion.Service { return p.service }

// trustedKeyFile adapts the keyfile store to the service's trusted-key
// collaborator, re-reading the file on every load so a rotated key is picked
// up without a restart.
type trustedKeyFile struct {
	store *keyfile.Store
	path  string
}

func (t *trustedKeyFile) Load() (*keybundle.Bundle, error) {
	return t.store.Load(t.path)
}

func startServer(parameters *serverParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	storeProvider, err := createStoreProvider(parameters)
	if err != nil {
		return err
	}

	profiles, err := profile.NewStore(storeProvider)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}

	trustedKeys, err := openTrustedKeyFile(parameters)
	if err != nil {
		return err
	}

	service, err := protocol.New(&serviceProvider{
		storageProvider: storeProvider,
		profiles:        profiles,
		trustedKeys:     trustedKeys,
	}, parameters.protocolCfg)
	if err != nil {
		return fmt.Errorf("failed to create assertion service: %w", err)
	}

	handlers := controller.GetRESTHandlers(&controllerProvider{service: service})

	router := mux.NewRouter()

	if parameters.token != "" {
		router.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range handlers {
		router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	logger.Infof("Starting absauthn rest on host [%s]", parameters.host)

	// start server on given port and serve using given handlers
	handler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start absauthn rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

func createStoreProvider(parameters *serverParameters) (storage.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("database type not set to a valid type." +
			" run start --help to see the available options")
	}

	var store storage.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			store, openErr = provider(parameters.dbParam.url)
			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage at %s : %w", parameters.dbParam.url, err)
	}

	return store, nil
}

// openTrustedKeyFile waits for the trusted key file to become readable, so
// the server can start before key provisioning has finished.
func openTrustedKeyFile(parameters *serverParameters) (protocol.TrustedKeyStore, error) {
	trustedKeys := &trustedKeyFile{store: keyfile.NewStore(), path: parameters.trustedKeyPath}

	err := backoff.RetryNotify(
		func() error {
			_, loadErr := trustedKeys.Load()
			return loadErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"trusted key file not ready, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load trusted key file %s : %w", parameters.trustedKeyPath, err)
	}

	return trustedKeys, nil
}
