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

import "sync"

// PMSRuntime holds the runtime configuration for the product master data service.
type PMSRuntime struct {
	PMSHome string `yaml:"pms_home"`
	Config  Config `yaml:"config"`
}

var (
	runtimeConfig *PMSRuntime
	once          sync.Once
)

// InitializePMSRuntime initializes the PMSRuntime configuration.
func InitializePMSRuntime(pmsHome string, config *Config) error {

	once.Do(func() {
		runtimeConfig = &PMSRuntime{
			PMSHome: pmsHome,
			Config:  *config,
		}
	})

	return nil
}

// GetPMSRuntime returns the PMSRuntime configuration.
func GetPMSRuntime() *PMSRuntime {

	if runtimeConfig == nil {
		panic("PMSRuntime is not initialized")
	}
	return runtimeConfig
}

// OverridePMSRuntime replaces the runtime configuration. Intended for tests.
func OverridePMSRuntime(conf Config) {
	runtimeConfig = &PMSRuntime{
		Config: conf,
	}
}
