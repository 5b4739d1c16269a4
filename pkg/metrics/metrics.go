// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// zeusNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	zeusNamespace = "zeus"

	serdeSubsystem = "serde"

	// 以下为当前使用的通用标签名。
	formatLabelName = "format"
	statusLabelName = "status"
	tableLabelName  = "table"
)

const (
	// StatusOK 与 StatusFail 为 status 标签的固定取值。
	StatusOK   = "ok"
	StatusFail = "fail"
)

var (
	// SerializeTotal 统计通过擦除接口完成的序列化调用次数，按格式与结果分类。
	SerializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: serdeSubsystem,
			Name:      "serialize_total",
			Help:      "number of erased serialize calls, by format and status",
		}, []string{formatLabelName, statusLabelName})

	// RegistryEntries 统计注册表当前持有的条目数，按表（format/value）分类。
	RegistryEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: zeusNamespace,
			Subsystem: serdeSubsystem,
			Name:      "registry_entries",
			Help:      "number of live entries per registry table",
		}, []string{tableLabelName})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在 init 函数中调用。
func Register(r prometheus.Registerer) {
	r.MustRegister(SerializeTotal)
	r.MustRegister(RegistryEntries)
	metricRegisterer = r
}
