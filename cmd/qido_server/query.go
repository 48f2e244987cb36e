package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicomweb/client"
	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		baseURL string
		study   string
		series  string
		params  []string
	)

	cmd := &cobra.Command{
		Use:   "query <studies|series|instances>",
		Short: "Search a QIDO-RS server and print the DICOM JSON result",
		Example: `  qido_server query studies -p PatientName=Doe* -p fuzzymatching=true
  qido_server query instances --study 1.2.3 --series 1.2.3.4 -p includefield=all`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"studies", "series", "instances"},
		RunE: func(cmd *cobra.Command, args []string) error {
			resource, err := searchResource(args[0], study, series)
			if err != nil {
				return err
			}

			var parameters query.Parameters
			for _, p := range params {
				key, value, ok := strings.Cut(p, "=")
				if !ok || key == "" {
					return errors.Newf("parameter %q must be key=value", p)
				}
				parameters = parameters.Add(key, value)
			}

			c, err := client.New(baseURL, client.Config{Logger: a.log.Named("client")})
			if err != nil {
				return err
			}
			resp, err := c.Search(cmd.Context(), resource, study, series, parameters)
			if err != nil {
				return err
			}

			for _, warning := range resp.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
			}
			out, err := json.MarshalIndent(resp.Datasets, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode result")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the QIDO-RS service")
	cmd.Flags().StringVar(&study, "study", "", "restrict the search to a study")
	cmd.Flags().StringVar(&series, "series", "", "restrict the search to a series (requires --study)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter as key=value, repeatable")
	return cmd
}

func searchResource(name, study, series string) (types.ResourceType, error) {
	if series != "" && study == "" {
		return 0, errors.New("--series requires --study")
	}
	switch name {
	case "studies":
		if study != "" {
			return 0, errors.New("studies cannot be scoped to a study")
		}
		return types.AllStudies, nil
	case "series":
		switch {
		case series != "":
			return 0, errors.New("series cannot be scoped to a series")
		case study != "":
			return types.StudySeries, nil
		}
		return types.AllSeries, nil
	case "instances":
		switch {
		case series != "":
			return types.StudySeriesInstances, nil
		case study != "":
			return types.StudyInstances, nil
		}
		return types.AllInstances, nil
	}
	return 0, errors.Newf("unknown resource %q, expected studies, series or instances", name)
}
