package mssql

import (
	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
)

func init() {
	datasource.RegisterAdapter(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        Engine,
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2019+, Azure SQL Database",
			Icon:        "mssql",
		},
		Factory: func(settings datasource.Settings) datasource.EngineSpec {
			return New(settings)
		},
	})
}
