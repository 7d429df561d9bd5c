// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/gorse-io/kgtore/cmd/version"
	"github.com/gorse-io/kgtore/common/log"
	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/storage/blob"
	"github.com/gorse-io/kgtore/storage/meta"
	"github.com/gorse-io/kgtore/worker"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:           "kgtore",
	Short:         "Decision path edge features of knowledge graph recommendation.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		otel.SetErrorHandler(log.GetErrorHandler())
	},
}

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Extract decision paths and build edge features.",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}

		// serve metrics
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				log.Logger().Info("start metrics server", zap.String("addr", addr))
				if err := http.ListenAndServe(addr, mux); err != nil {
					log.Logger().Error("failed to serve metrics", zap.Error(err))
				}
			}()
		}

		showProgress, _ := cmd.Flags().GetBool("progress")
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runPipeline(ctx, conf, showProgress)
	},
}

var inspectCommand = &cobra.Command{
	Use:   "inspect [run id]",
	Short: "Show the edge feature columns of a run.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		if conf.Database.FeatureStore == "" {
			return errors.NotValidf("empty feature store")
		}
		database, err := openFeatureStore(conf)
		if err != nil {
			return errors.Trace(err)
		}
		defer database.Close()
		runID := ""
		if len(args) > 0 {
			runID = args[0]
		}
		return inspect(cmd.Context(), cmd.OutOrStdout(), database, conf.Dataset.Name, runID)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show the version of kgtore.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
	},
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load config")
	}
	return conf, nil
}

func openFeatureStore(conf *config.Config) (meta.Database, error) {
	database, err := meta.Open(conf.Database)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to connect feature store %v",
			log.RedactDBURL(conf.Database.FeatureStore))
	}
	if err = database.Init(); err != nil {
		_ = database.Close()
		return nil, errors.Annotate(err, "failed to init feature store")
	}
	return database, nil
}

// runPipeline loads the dataset, builds edge features and saves the run if a feature store
// is configured.
func runPipeline(ctx context.Context, conf *config.Config, showProgress bool) error {
	index, interactions, err := worker.LoadDataset(conf.Dataset)
	if err != nil {
		return errors.Trace(err)
	}
	store, err := blob.Open(conf.Storage)
	if err != nil {
		return errors.Annotate(err, "failed to open blob store")
	}
	pipeline := &worker.Pipeline{
		Config:       conf,
		Index:        index,
		Interactions: interactions,
		Store:        store,
		ShowProgress: showProgress,
	}
	if conf.Database.FeatureStore != "" {
		database, err := openFeatureStore(conf)
		if err != nil {
			return errors.Trace(err)
		}
		defer database.Close()
		pipeline.FeatureStore = database
	}

	output, err := pipeline.Run(ctx)
	if err != nil {
		return errors.Annotate(err, "failed to build edge features")
	}
	log.RunLogger(output.RunID, conf.Dataset.Name).Info("complete",
		zap.String("path", output.Path),
		zap.Int("n_rows", output.Matrix.NumRows),
		zap.Int("n_columns", output.Matrix.NumColumns))
	return nil
}

// inspect prints a run and its features. The latest run of the dataset is shown if runID is
// empty.
func inspect(ctx context.Context, w io.Writer, database meta.Database, datasetName, runID string) error {
	var run *meta.Run
	var err error
	if runID != "" {
		run, err = database.GetRun(ctx, runID)
	} else {
		run, err = database.LatestRun(ctx, datasetName)
	}
	if err != nil {
		return errors.Trace(err)
	}
	features, err := database.GetFeatures(ctx, run.ID)
	if err != nil {
		return errors.Trace(err)
	}

	fmt.Fprintf(w, "Run %s of %s (npr=%d, criterion=%s, seed=%d)\n",
		run.ID, run.Dataset, run.NPR, run.Criterion, run.Seed)
	fmt.Fprintf(w, "%d users (%d skipped, %d failed), %d records, %d x %d matrix at %s\n",
		run.Users, run.Skipped, run.Failed, run.Records, run.Rows, run.Columns, run.Path)
	return renderFeatures(w, features)
}

func renderFeatures(w io.Writer, features []meta.Feature) error {
	table := tablewriter.NewWriter(w)
	table.Header("column", "feature id", "predicate", "object", "freq")
	for _, feature := range features {
		if err := table.Append([]string{
			strconv.Itoa(int(feature.Column)),
			strconv.Itoa(int(feature.FeatureID)),
			feature.Predicate,
			feature.Object,
			strconv.Itoa(feature.Freq),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	runCommand.Flags().String("metrics-addr", "", "address of the prometheus metrics server")
	runCommand.Flags().Bool("progress", false, "show progress bar")
	rootCommand.AddCommand(runCommand, inspectCommand, versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
