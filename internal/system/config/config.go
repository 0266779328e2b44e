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

package config

type LogConfig struct {
	LogLevel string `yaml:"log_level"`
}

type DataSourceConfig struct {
	// Type selects the SQL driver: "postgres" or "sqlite".
	Type     string `yaml:"type"`
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file location when Type is "sqlite".
	Path string `yaml:"path"`
}

// MatcherConfig pins the similarity thresholds. Retuning these reshuffles
// existing clusters and must be treated as a breaking change that requires
// a verifier review against the saved baseline.
type MatcherConfig struct {
	JaccardThreshold float64 `yaml:"jaccard_threshold"`
	MaxEditDistance  int     `yaml:"max_edit_distance"`
	Workers          int     `yaml:"workers"`
}

type MappingConfig struct {
	ConfigFile string `yaml:"config_file"`
}

type BaselineConfig struct {
	// Store selects where verifier baselines live: "mongo" or "database".
	Store      string `yaml:"store"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	DataSource DataSourceConfig `yaml:"datasource"`
	Matcher    MatcherConfig    `yaml:"matcher"`
	Mapping    MappingConfig    `yaml:"mapping"`
	Baseline   BaselineConfig   `yaml:"baseline"`
}
