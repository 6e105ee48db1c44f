/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

// Package keygencmd provisions the key material the assertion server needs:
// an issuer key pair, a certified attester key pair and, optionally, a
// registered user profile holding the attester public key.
package keygencmd

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/absauthn/absauthn/pkg/common/log"
	"github.com/absauthn/absauthn/pkg/crypto/primitive/absfp256bn"
	"github.com/absauthn/absauthn/pkg/doc/keybundle"
	"github.com/absauthn/absauthn/pkg/storage/jsonfile"
	"github.com/absauthn/absauthn/pkg/storage/keyfile"
	"github.com/absauthn/absauthn/pkg/storage/profile"
)

const (
	trustedKeyFileFlagName      = "trusted-key-file"
	trustedKeyFileEnvKey        = "ABSAUTHN_TRUSTED_KEY_FILE"
	trustedKeyFileFlagShorthand = "k"
	trustedKeyFileFlagUsage     = "Path the trusted key file gets written to." +
		" Alternatively, this can be set with the following environment variable: " + trustedKeyFileEnvKey

	attesterKeyFileFlagName  = "attester-key-file"
	attesterKeyFileEnvKey    = "ABSAUTHN_ATTESTER_KEY_FILE"
	attesterKeyFileFlagUsage = "Path the attester key file (including the signing scalar) gets written to." +
		" Alternatively, this can be set with the following environment variable: " + attesterKeyFileEnvKey

	usernameFlagName  = "register-user"
	usernameEnvKey    = "ABSAUTHN_REGISTER_USER"
	usernameFlagUsage = "If set, registers a profile for this user holding the generated attester public key." +
		" Alternatively, this can be set with the following environment variable: " + usernameEnvKey

	policyFlagName  = "policy"
	policyEnvKey    = "ABSAUTHN_POLICY"
	policyFlagUsage = "Policy stored on the registered profile." +
		" Alternatively, this can be set with the following environment variable: " + policyEnvKey

	attributesFlagName  = "attributes"
	attributesEnvKey    = "ABSAUTHN_ATTRIBUTES"
	attributesFlagUsage = "Attributes certified into the attester key, in name=value,name=value format." +
		" Alternatively, this can be set with the following environment variable: " + attributesEnvKey

	databaseURLFlagName  = "database-url"
	databaseURLEnvKey    = "ABSAUTHN_DATABASE_URL"
	databaseURLFlagUsage = "The root directory of the profile database. Required when registering a user." +
		" Alternatively, this can be set with the following environment variable: " + databaseURLEnvKey

	// component name of the attester signing scalar in the attester key file.
	componentSigningKey = "sk"
)

var logger = log.New("absauthn/keygencmd") //nolint:gochecknoglobals

type keygenParameters struct {
	trustedKeyPath  string
	attesterKeyPath string
	username        string
	policy          string
	attributes      keybundle.AttributeMap
	databaseURL     string
}

// Cmd returns the Cobra keygen command.
func Cmd() *cobra.Command {
	keygenCmd := createKeygenCMD()

	createFlags(keygenCmd)

	return keygenCmd
}

func createKeygenCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate key material",
		Long:  `Generate the issuer and attester keys and optionally register a user profile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getKeygenParameters(cmd)
			if err != nil {
				return err
			}

			return runKeygen(parameters)
		},
	}
}

func createFlags(keygenCmd *cobra.Command) {
	keygenCmd.Flags().StringP(trustedKeyFileFlagName, trustedKeyFileFlagShorthand, "", trustedKeyFileFlagUsage)
	keygenCmd.Flags().StringP(attesterKeyFileFlagName, "", "", attesterKeyFileFlagUsage)
	keygenCmd.Flags().StringP(usernameFlagName, "", "", usernameFlagUsage)
	keygenCmd.Flags().StringP(policyFlagName, "", "", policyFlagUsage)
	keygenCmd.Flags().StringP(attributesFlagName, "", "", attributesFlagUsage)
	keygenCmd.Flags().StringP(databaseURLFlagName, "", "", databaseURLFlagUsage)
}

func getKeygenParameters(cmd *cobra.Command) (*keygenParameters, error) {
	trustedKeyPath, err := getUserSetVar(cmd, trustedKeyFileFlagName, trustedKeyFileEnvKey, false)
	if err != nil {
		return nil, err
	}

	attesterKeyPath, err := getUserSetVar(cmd, attesterKeyFileFlagName, attesterKeyFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	username, err := getUserSetVar(cmd, usernameFlagName, usernameEnvKey, true)
	if err != nil {
		return nil, err
	}

	policy, err := getUserSetVar(cmd, policyFlagName, policyEnvKey, true)
	if err != nil {
		return nil, err
	}

	attributesCSV, err := getUserSetVar(cmd, attributesFlagName, attributesEnvKey, true)
	if err != nil {
		return nil, err
	}

	attributes, err := parseAttributes(attributesCSV)
	if err != nil {
		return nil, err
	}

	databaseURL, err := getUserSetVar(cmd, databaseURLFlagName, databaseURLEnvKey, username == "")
	if err != nil {
		return nil, err
	}

	return &keygenParameters{
		trustedKeyPath:  trustedKeyPath,
		attesterKeyPath: attesterKeyPath,
		username:        username,
		policy:          policy,
		attributes:      attributes,
		databaseURL:     databaseURL,
	}, nil
}

func parseAttributes(csv string) (keybundle.AttributeMap, error) {
	if csv == "" {
		return nil, nil
	}

	attributes := keybundle.AttributeMap{}

	for _, pair := range strings.Split(csv, ",") {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("malformed attribute %q, want name=value", pair)
		}

		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed attribute value %q: %w", pair, err)
		}

		attributes[name] = n
	}

	return attributes, nil
}

func runKeygen(parameters *keygenParameters) error {
	issuerPub, issuerPriv, err := absfp256bn.GenerateIssuerKeyPair(sha256.New, nil)
	if err != nil {
		return fmt.Errorf("failed to generate issuer key pair: %w", err)
	}

	attesterPub, attesterPriv, err := absfp256bn.GenerateKeyPair(sha256.New, nil)
	if err != nil {
		return fmt.Errorf("failed to generate attester key pair: %w", err)
	}

	if err := issuerPriv.Certify(attesterPub, parameters.attributes); err != nil {
		return fmt.Errorf("failed to certify attester key: %w", err)
	}

	store := keyfile.NewStore()

	trustedBundle, err := issuerPub.ToKeyBundle()
	if err != nil {
		return err
	}

	if err := store.Save(trustedBundle, parameters.trustedKeyPath); err != nil {
		return fmt.Errorf("failed to write trusted key file: %w", err)
	}

	logger.Infof("wrote trusted key file %s", parameters.trustedKeyPath)

	if parameters.attesterKeyPath != "" {
		if err := writeAttesterKeyFile(store, attesterPub, attesterPriv, parameters.attesterKeyPath); err != nil {
			return err
		}

		logger.Infof("wrote attester key file %s", parameters.attesterKeyPath)
	}

	if parameters.username != "" {
		if err := registerUser(parameters, attesterPub); err != nil {
			return err
		}

		logger.Infof("registered user %s", parameters.username)
	}

	return nil
}

func writeAttesterKeyFile(store *keyfile.Store, pub *absfp256bn.PublicKey,
	priv *absfp256bn.PrivateKey, path string) error {
	bundle, err := pub.ToKeyBundle()
	if err != nil {
		return err
	}

	if err := bundle.Set(componentSigningKey, priv.SK); err != nil {
		return err
	}

	if err := store.Save(bundle, path); err != nil {
		return fmt.Errorf("failed to write attester key file: %w", err)
	}

	return nil
}

func registerUser(parameters *keygenParameters, attesterPub *absfp256bn.PublicKey) error {
	provider, err := jsonfile.NewProvider(parameters.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open profile database: %w", err)
	}

	profiles, err := profile.NewStore(provider)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}

	apkBundle, err := attesterPub.ToKeyBundle()
	if err != nil {
		return err
	}

	credID, err := profiles.Register(parameters.username, parameters.policy, apkBundle)
	if err != nil {
		return fmt.Errorf("failed to register user %s: %w", parameters.username, err)
	}

	logger.Infof("registered credential %s", credID)

	return nil
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
