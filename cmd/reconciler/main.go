/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wso2/product-master-data-service/internal/catalog/provider"
	dmModel "github.com/wso2/product-master-data-service/internal/dynamic_mapping/model"
	dmService "github.com/wso2/product-master-data-service/internal/dynamic_mapping/service"
	"github.com/wso2/product-master-data-service/internal/mapping/store"
	"github.com/wso2/product-master-data-service/internal/matching"
	"github.com/wso2/product-master-data-service/internal/pipeline"
	"github.com/wso2/product-master-data-service/internal/system/config"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/database/lock"
	dbProvider "github.com/wso2/product-master-data-service/internal/system/database/provider"
	"github.com/wso2/product-master-data-service/internal/system/log"
	verService "github.com/wso2/product-master-data-service/internal/verification/service"
	verStore "github.com/wso2/product-master-data-service/internal/verification/store"
)

const configFile = "/repository/conf/deployment.yaml"

func main() {
	root := &cobra.Command{
		Use:           "reconciler",
		Short:         "Product master data reconciliation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "mapping configuration file (overrides deployment config)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "validate" {
			// Validation needs no datasource; a bare logger is enough.
			return log.Init("INFO")
		}
		return bootstrap()
	}

	root.AddCommand(newReconcileCmd(), newApplyCmd(), newVerifyCmd(), newValidateCmd(), newInitCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads environment files and the deployment configuration, then
// initializes the runtime singleton and the logger.
func bootstrap() error {
	envFiles, _ := filepath.Glob("config/*.env")
	_ = godotenv.Load(envFiles...)

	pmsHome := getPMSHome()
	pmsConfig, err := config.LoadConfig(pmsHome, configFile)
	if err != nil {
		return fmt.Errorf("failed to load deployment configuration: %w", err)
	}
	if err := config.InitializePMSRuntime(pmsHome, pmsConfig); err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	return log.Init(pmsConfig.Log.LogLevel)
}

func getPMSHome() string {
	if home := os.Getenv("PMS_HOME"); home != "" {
		return home
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// mappingConfigPath resolves the configuration file from the --config flag,
// falling back to the deployment configuration.
func mappingConfigPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.GetPMSRuntime().Config.Mapping.ConfigFile
}

func buildPipeline() *pipeline.Pipeline {
	cfg := config.GetPMSRuntime().Config

	var runLock lock.DistributedLock = lock.NewNoopLock()
	if cfg.DataSource.Type == constants.DataSourceTypePostgres {
		runLock = lock.NewPostgresLock()
	}

	return pipeline.New(
		provider.NewSQLRecordProvider(),
		store.NewSQLStore(),
		pipeline.WithLock(runLock),
		pipeline.WithBaselines(verStore.NewBaselineStore()),
		pipeline.WithMatcherOptions(matching.Options{
			JaccardThreshold: cfg.Matcher.JaccardThreshold,
			MaxEditDistance:  cfg.Matcher.MaxEditDistance,
			Workers:          cfg.Matcher.Workers,
		}),
	)
}

func newReconcileCmd() *cobra.Command {
	var writeback bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run the full reconciliation pipeline and publish the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mappingCfg *dmModel.MappingConfiguration
			if path := mappingConfigPath(cmd); path != "" {
				loaded, err := dmService.LoadConfiguration(path)
				if err != nil {
					return err
				}
				mappingCfg = loaded
			}

			p := buildPipeline()
			result, err := p.Run(context.Background(), mappingCfg)
			if err != nil {
				return err
			}

			if writeback {
				writer := provider.NewSQLRecordProvider()
				if err := writer.WriteAssignments(result.Assignments); err != nil {
					return err
				}
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().BoolVar(&writeback, "writeback", false, "stamp parent identifiers onto source rows")
	return cmd
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply the mapping configuration to the mapping store",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := mappingConfigPath(cmd)
			if path == "" {
				return fmt.Errorf("no mapping configuration file configured")
			}
			mappingCfg, err := dmService.LoadConfiguration(path)
			if err != nil {
				return err
			}

			result, err := dmService.Apply(mappingCfg, store.NewSQLStore())
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run the consistency checks and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			baselines := verStore.NewBaselineStore()
			baseline, err := baselines.Latest(context.Background())
			if err != nil {
				return err
			}

			report, err := verService.Verify(store.NewSQLStore(), baseline)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.Clean() {
				return fmt.Errorf("consistency check flagged violations")
			}
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	var schemaFile string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the mapping store schema on the configured datasource",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dbProvider.InitDatabase(getPMSHome(), schemaFile); err != nil {
				return err
			}
			cmd.Printf("Schema %s applied\n", schemaFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "dbscripts/schema.sql", "schema file, relative to PMS_HOME")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Schema-check a mapping configuration without touching any store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := mappingConfigPath(cmd)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no mapping configuration file given")
			}

			mappingCfg, err := dmService.LoadConfiguration(path)
			if err != nil {
				return err
			}
			cmd.Printf("Configuration %s (version %s) is valid: %d bindings, %d renames, %d merges, %d splits\n",
				path, mappingCfg.Version, len(mappingCfg.Bindings), len(mappingCfg.Renames),
				len(mappingCfg.Merges), len(mappingCfg.Splits))
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
