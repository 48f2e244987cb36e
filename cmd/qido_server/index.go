package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file|dir>...",
		Short: "Index DICOM JSON files",
		Long: `Index reads DICOM JSON files (one dataset object or an array of them per
file), records their attributes in the index and stores their metadata.
Directories are walked for *.json files. Re-indexing an instance bumps its
version.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectFiles(args)
			if err != nil {
				return err
			}

			index, metadata, err := a.openStores()
			if err != nil {
				return err
			}
			defer index.Close()
			defer metadata.Close()

			ctx := cmd.Context()
			count := 0
			for _, file := range files {
				datasets, err := readDatasets(file)
				if err != nil {
					return err
				}
				for _, ds := range datasets {
					id, err := index.Index(ctx, ds)
					if err != nil {
						return errors.Wrapf(err, "index %s", file)
					}
					if err := metadata.PutMetadata(ctx, id, ds); err != nil {
						return errors.Wrapf(err, "store metadata from %s", file)
					}
					a.log.Debug("Indexed instance",
						zap.String("file", file),
						zap.String("sop_instance_uid", id.SOPInstanceUID),
						zap.Int64("version", id.Version))
					count++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d instance(s) from %d file(s)\n", count, len(files))
			return nil
		},
	}
	addStorageFlags(cmd)
	return cmd
}

func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", arg)
		}
	}
	return files, nil
}

func readDatasets(file string) ([]*dicom.Dataset, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", file)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var datasets []*dicom.Dataset
		if err := json.Unmarshal(data, &datasets); err != nil {
			return nil, errors.Wrapf(err, "decode %s", file)
		}
		return datasets, nil
	}

	ds := dicom.NewDataset()
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, errors.Wrapf(err, "decode %s", file)
	}
	return []*dicom.Dataset{ds}, nil
}
