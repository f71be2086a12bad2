package pinot

import (
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterAdapter(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        Engine,
			DisplayName: "Apache Pinot",
			Description: "Query Apache Pinot through its broker SQL endpoint",
			Icon:        "pinot",
		},
		Factory: func(settings datasource.Settings) datasource.EngineSpec {
			return New(settings)
		},
	})
}
