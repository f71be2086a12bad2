package druid

import (
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterAdapter(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        Engine,
			DisplayName: "Apache Druid",
			Description: "Query Apache Druid through its SQL broker",
			Icon:        "druid",
		},
		Factory: func(settings datasource.Settings) datasource.EngineSpec {
			return New(settings)
		},
	})
}
