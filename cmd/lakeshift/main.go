package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/lakeshift/lakeshift"
)

func main() {
	var (
		profile    = flag.String("profile", "", "path to a TOML config profile (environment overrides it)")
		query      = flag.String("query", "", "ad-hoc SQL to run against the source")
		table      = flag.String("table", "", "source table to extract")
		method     = flag.String("method", "dbfs", "upload method: dbfs, staged or insert")
		target     = flag.String("target", "", "destination table or file name (defaults to the source table)")
		mode       = flag.String("mode", "overwrite", "write mode for table methods: overwrite or append")
		format     = flag.String("format", "parquet", "file format for the dbfs method: parquet or csv")
		limit      = flag.Int("limit", 0, "max rows to extract per table, 0 for all")
		listTables = flag.Bool("list-tables", false, "list tables in the source database and exit")
		all        = flag.Bool("all", false, "transfer every table in the source database")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn or error")
	)
	flag.Parse()

	if err := run(*profile, *query, *table, *method, *target, *mode, *format, *limit, *listTables, *all, *logLevel); err != nil {
		lakeshift.GetLogger().Errorf("%v", err)
		os.Exit(1)
	}
}

func run(profile, query, table, method, targetName, mode, format string, limit int, listTables, all bool, logLevel string) error {
	cfg, err := lakeshift.LoadConfig(profile)
	if err != nil {
		return err
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if logLevel != "" {
		if err := lakeshift.GetLogger().SetLogLevel(logLevel); err != nil {
			return err
		}
	}

	ctx := context.Background()
	source := lakeshift.NewQueryClientFromConfig(cfg)

	if listTables {
		tables, err := source.ListTables(ctx)
		if err != nil {
			return err
		}
		for i, t := range tables {
			fmt.Printf("%3d. %s\n", i+1, t)
		}
		fmt.Printf("total: %d tables\n", len(tables))
		return nil
	}

	client := lakeshift.NewAPIClientFromConfig(cfg)
	writer := lakeshift.NewSQLWriter(client, cfg.InsertBatchSize)
	engine := lakeshift.NewEngine(client, writer)

	if all {
		return runAll(ctx, source, engine, mode)
	}

	if query == "" && table == "" {
		return fmt.Errorf("provide -query or -table (or -all / -list-tables)")
	}

	writeMode, err := lakeshift.ParseWriteMode(mode)
	if err != nil {
		return err
	}
	if targetName == "" {
		targetName = table
	}
	if targetName == "" {
		targetName = "query_result"
	}

	var transferTarget lakeshift.Target
	switch method {
	case "dbfs":
		fileFormat, err := lakeshift.ParseFileFormat(format)
		if err != nil {
			return err
		}
		path := fmt.Sprintf("/FileStore/lakeshift/%s.%s", targetName, fileFormat)
		transferTarget = lakeshift.NewFileTarget(path, fileFormat, true)
	case "staged":
		transferTarget = lakeshift.NewStagedTarget(lakeshift.TableTarget{Table: targetName, Mode: writeMode})
	case "insert":
		transferTarget = lakeshift.NewTableTarget(lakeshift.TableTarget{Table: targetName, Mode: writeMode})
	default:
		return fmt.Errorf("unknown method %q, use dbfs, staged or insert", method)
	}

	log := lakeshift.GetLogger()
	log.Infof("extracting data from source")
	var ds *lakeshift.Dataset
	if query != "" {
		ds, err = source.RunQuery(ctx, query)
	} else {
		ds, err = source.ReadTable(ctx, table, limit)
	}
	if err != nil {
		return err
	}
	log.Infof("extracted %d rows, %d columns", ds.NumRows(), ds.NumColumns())

	ds.SanitizeColumns()

	if method == "insert" && ds.NumRows() > 50000 {
		log.Warnf("dataset has %d rows; the insert method is slow for large datasets, consider -method staged", ds.NumRows())
	}

	outcome, err := engine.Transfer(ctx, ds, transferTarget)
	if err != nil {
		return err
	}
	log.Infof("transfer completed in %.1fs: %d rows, %d bytes", outcome.Elapsed.Seconds(), outcome.Rows, outcome.Bytes)
	return nil
}

func runAll(ctx context.Context, source *lakeshift.QueryClient, engine *lakeshift.Engine, mode string) error {
	writeMode, err := lakeshift.ParseWriteMode(mode)
	if err != nil {
		return err
	}
	tables, err := source.ListTables(ctx)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		lakeshift.GetLogger().Warnf("no tables found in source database")
		return nil
	}

	runner := lakeshift.NewRunner(source, engine, func(table string) lakeshift.Target {
		return lakeshift.NewTableTarget(lakeshift.TableTarget{Table: table, Mode: writeMode})
	})
	report := runner.Run(ctx, tables)

	fmt.Printf("succeeded: %d/%d tables\n", report.Succeeded(), len(tables))
	fmt.Printf("failed:    %d/%d tables\n", report.Failed(), len(tables))
	for _, item := range report.Failures() {
		fmt.Printf("  - %s: %v\n", item.Table, item.Err)
	}
	return nil
}
