// Package migrations embeds the schema revisions of the service.
//
// Each revision is a pair of SQL scripts in versions/:
//
//	<revision>_<slug>.up.sql
//	<revision>_<slug>.down.sql
//
// The up script starts with a YAML header written as SQL comments:
//
//	-- revision: '9b3d5e7a2c41'
//	-- down_revision: '4f1c2a9e7b10'
//	-- branch_labels: null
//	-- create_date: '2024-01-01 00:10:00.000000'
//	-- message: "create tasks"
//
// down_revision may be a list for merge revisions. New revisions are created with:
//
//	restorm migrate create "add column"
//
// Scripts must run on both postgres and sqlite.
package migrations
