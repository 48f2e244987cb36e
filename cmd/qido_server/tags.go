package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

// tagView is the printed form of an extended query tag.
type tagView struct {
	Path           string `yaml:"path"`
	Keyword        string `yaml:"keyword,omitempty"`
	VR             string `yaml:"vr"`
	Level          string `yaml:"level"`
	Status         string `yaml:"status"`
	ErrorCount     int    `yaml:"errorCount"`
	PrivateCreator string `yaml:"privateCreator,omitempty"`
}

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage extended query tags",
	}
	cmd.AddCommand(
		newTagsListCmd(a),
		newTagsAddCmd(a),
		newTagsStatusCmd(a, "disable", types.StatusDisabled),
		newTagsStatusCmd(a, "enable", types.StatusReady),
	)
	return cmd
}

func newTagsListCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List extended query tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, metadata, err := a.openStores()
			if err != nil {
				return err
			}
			defer index.Close()
			defer metadata.Close()

			tags, err := index.ListExtendedQueryTags(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]tagView, 0, len(tags))
			for _, tag := range tags {
				views = append(views, tagView{
					Path:           tag.Path.String(),
					Keyword:        tag.Keyword,
					VR:             string(tag.VR),
					Level:          tag.Level.String(),
					Status:         string(tag.Status),
					ErrorCount:     tag.ErrorCount,
					PrivateCreator: tag.PrivateCreator,
				})
			}

			switch output {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(views); err != nil {
					return errors.Wrap(err, "encode yaml")
				}
				return enc.Close()
			case "table":
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PATH\tKEYWORD\tVR\tLEVEL\tSTATUS\tERRORS")
				for _, v := range views {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", v.Path, v.Keyword, v.VR, v.Level, v.Status, v.ErrorCount)
				}
				return w.Flush()
			}
			return errors.Newf("unknown output format %q", output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or yaml")
	addStorageFlags(cmd)
	return cmd
}

func newTagsAddCmd(a *app) *cobra.Command {
	var (
		level          string
		vr             string
		privateCreator string
	)
	cmd := &cobra.Command{
		Use:   "add <keyword|tag>",
		Short: "Register an extended query tag",
		Example: `  qido_server tags add ManufacturerModelName --level series
  qido_server tags add 00091001 --vr LO --level instance --private-creator ACME`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := query.ParseTagPath(args[0])
			if err != nil {
				return err
			}
			lvl, ok := types.ParseResourceLevel(level)
			if !ok {
				return errors.Newf("unknown level %q, expected study, series or instance", level)
			}

			tag := types.QueryTag{
				Path:           path,
				Level:          lvl,
				Origin:         types.OriginExtended,
				PrivateCreator: privateCreator,
			}
			if entry, ok := dicom.LookupTag(path.Tag); ok {
				tag.VR = entry.VR
				tag.Keyword = entry.Keyword
			}
			if vr != "" {
				tag.VR = dicom.VR(strings.ToUpper(vr))
			}
			if tag.VR == "" {
				return errors.WithHint(errors.Newf("VR of %s is unknown", path), "pass --vr")
			}

			index, metadata, err := a.openStores()
			if err != nil {
				return err
			}
			defer index.Close()
			defer metadata.Close()

			if err := index.AddExtendedQueryTag(cmd.Context(), tag); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s, %s)\n", tag.Name(), tag.VR, tag.Level)
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "instance", "resource level: study, series or instance")
	cmd.Flags().StringVar(&vr, "vr", "", "value representation, required for tags missing from the dictionary")
	cmd.Flags().StringVar(&privateCreator, "private-creator", "", "private creator of a private tag")
	addStorageFlags(cmd)
	return cmd
}

func newTagsStatusCmd(a *app, use string, status types.ExtendedTagStatus) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <keyword|tag>",
		Short: fmt.Sprintf("Set the status of an extended query tag to %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := query.ParseTagPath(args[0])
			if err != nil {
				return err
			}

			index, metadata, err := a.openStores()
			if err != nil {
				return err
			}
			defer index.Close()
			defer metadata.Close()

			if err := index.SetExtendedQueryTagStatus(cmd.Context(), path, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", path.Keyword(), status)
			return nil
		},
	}
	addStorageFlags(cmd)
	return cmd
}
