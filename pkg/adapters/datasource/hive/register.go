package hive

import (
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterAdapter(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        Engine,
			DisplayName: "Apache Hive",
			Description: "Query Apache Hive through HiveServer2",
			Icon:        "hive",
		},
		Factory: func(settings datasource.Settings) datasource.EngineSpec {
			return New(settings)
		},
	})
}
