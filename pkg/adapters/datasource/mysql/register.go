package mysql

import (
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterAdapter(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        Engine,
			DisplayName: "MySQL",
			Description: "Connect to MySQL 5.7+, MariaDB, Aurora MySQL",
			Icon:        "mysql",
		},
		Factory: func(settings datasource.Settings) datasource.EngineSpec {
			return New(settings)
		},
	})
}
