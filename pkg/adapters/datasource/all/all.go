// Package all registers every engine adapter. Import it for side effects
// before calling datasource.NewRegistry.
package all

import (
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/druid"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/hive"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/pinot"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/presto"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/redshift"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/sqlite"
)
