package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/systmms/secretsplit/internal/config"
	dserrors "github.com/systmms/secretsplit/internal/errors"
	"github.com/systmms/secretsplit/internal/logging"
	"github.com/systmms/secretsplit/internal/repository"
	"github.com/systmms/secretsplit/internal/secretstores"
	"github.com/systmms/secretsplit/pkg/secrets"
)

// loadConfig reads the definition and applies environment overrides. A
// missing file is accepted when SECRET_PERSISTENCE is set.
func loadConfig(ctx context.Context, cfg *config.Config) error {
	loadErr := cfg.Load()
	var cfgErr dserrors.ConfigError
	if loadErr != nil && !(errors.As(loadErr, &cfgErr) && cfgErr.Field == "path") {
		return loadErr
	}

	if err := cfg.LoadEnv(ctx, nil); err != nil {
		return err
	}
	if loadErr != nil && cfg.Env.SecretPersistence == "" {
		return loadErr
	}
	return nil
}

// openRepository loads the configuration and opens its stores. The caller
// closes the returned stores.
func openRepository(ctx context.Context, cfg *config.Config) (*repository.Stores, *repository.FileConfigStore, error) {
	if err := loadConfig(ctx, cfg); err != nil {
		return nil, nil, err
	}

	stores, err := repository.OpenStores(ctx, cfg, secretstores.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	return stores, repository.NewFileConfigStore(cfg.ConfigDir()), nil
}

// readJSONInput decodes a JSON document from path, or from the command's
// stdin when path is "-".
func readJSONInput(cmd *cobra.Command, path string) (any, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, dserrors.UserError{
				Message:    "Failed to read " + path,
				Details:    err.Error(),
				Suggestion: "Check the file path",
				Err:        err,
			}
		}
		r = bytes.NewReader(data)
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", inputName(path), err)
	}
	return doc, nil
}

func inputName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// inputArg returns the single positional input, defaulting to stdin.
func inputArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

// redactError scrubs the secret payloads of doc from err's message. err is
// returned unchanged when it mentions none of them.
func redactError(err error, doc, schema any) error {
	if err == nil {
		return nil
	}
	split, splitErr := secrets.Split(uuid.New, uuid.Nil, doc, schema)
	if splitErr != nil || len(split.Secrets) == 0 {
		return err
	}

	payloads := make([]string, 0, len(split.Secrets))
	for _, payload := range split.Secrets {
		payloads = append(payloads, payload)
	}
	msg := err.Error()
	if redacted := logging.Redact(msg, payloads); redacted != msg {
		return errors.New(redacted)
	}
	return err
}
