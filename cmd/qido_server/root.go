package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caio-sobreiro/dicomweb/config"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/logger"
	"github.com/caio-sobreiro/dicomweb/storage/bbolt"
	"github.com/caio-sobreiro/dicomweb/storage/sqlite"
)

// app carries the state shared by every command once the configuration is
// loaded.
type app struct {
	configFile string
	cfg        *config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "qido_server",
		Short: "DICOMweb QIDO-RS search server",
		Long: `qido_server answers QIDO-RS searches from a SQLite attribute index and a
BoltDB metadata store.

Examples:
  qido_server index ./studies          # index DICOM JSON files
  qido_server serve                    # serve /studies, /series, /instances
  qido_server query studies -p PatientID=123
  qido_server tags list -o yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "emit JSON logs")

	cmd.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newIndexCmd(a),
		newTagsCmd(a),
	)
	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	v, err := config.NewViper(a.configFile)
	if err != nil {
		return err
	}
	bindings := map[string]string{
		"log.level":                    "log-level",
		"log.json":                     "log-json",
		"server.address":               "address",
		"query.max_concurrent_fetches": "max-concurrent-fetches",
		"storage.index_path":           "index",
		"storage.metadata_path":        "metadata",
	}
	for key, name := range bindings {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return errors.Wrapf(err, "bind flag --%s", name)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// openStores opens the index and the metadata store. The caller closes both.
func (a *app) openStores() (*sqlite.Store, *bbolt.Store, error) {
	index, err := sqlite.Open(a.cfg.Storage.IndexPath, sqlite.WithLogger(a.log.Named("index")))
	if err != nil {
		return nil, nil, err
	}
	metadata, err := bbolt.Open(a.cfg.Storage.MetadataPath)
	if err != nil {
		_ = index.Close()
		return nil, nil, err
	}
	return index, metadata, nil
}

// addStorageFlags registers the flags overriding the store locations.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("index", "", "path of the SQLite index")
	cmd.Flags().String("metadata", "", "path of the BoltDB metadata store")
}
