package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "json", "log format")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

func repoFlag(v *viper.Viper) string {
	return v.GetString("repo")
}

func addRepoFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("repo", ".", "Repository directory for the git and filesystem engines")
	_ = v.BindPFlag("repo", flags.Lookup("repo"))
	_ = v.BindEnv("repo", "GITDB_REPO")
}

func engineFlag(v *viper.Viper) string {
	return v.GetString("engine")
}

func addEngineFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("engine", engineGit, "Snapshot engine: git, filesystem or blob")
	_ = v.BindPFlag("engine", flags.Lookup("engine"))
	_ = v.BindEnv("engine", "GITDB_ENGINE")
}

func blobBucketFlag(v *viper.Viper) string {
	return v.GetString("blob.bucket")
}

func addBlobBucketFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("blob-bucket", "", "Bucket URL for the blob engine (gs://, s3://, azblob://, file://, mem://)")
	_ = v.BindPFlag("blob.bucket", flags.Lookup("blob-bucket"))
	_ = v.BindEnv("blob.bucket", "GITDB_BLOB_BUCKET")
}

func blobPrefixFlag(v *viper.Viper) string {
	return v.GetString("blob.prefix")
}

func addBlobPrefixFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("blob-prefix", "", "Key prefix inside the bucket")
	_ = v.BindPFlag("blob.prefix", flags.Lookup("blob-prefix"))
	_ = v.BindEnv("blob.prefix", "GITDB_BLOB_PREFIX")
}

func authorNameFlag(v *viper.Viper) string {
	return v.GetString("author.name")
}

func addAuthorNameFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("author-name", "gitdb", "Author recorded on snapshots")
	_ = v.BindPFlag("author.name", flags.Lookup("author-name"))
	_ = v.BindEnv("author.name", "GITDB_AUTHOR_NAME")
}

func authorEmailFlag(v *viper.Viper) string {
	return v.GetString("author.email")
}

func addAuthorEmailFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("author-email", "gitdb@localhost", "Author email recorded on git snapshots")
	_ = v.BindPFlag("author.email", flags.Lookup("author-email"))
	_ = v.BindEnv("author.email", "GITDB_AUTHOR_EMAIL")
}

func snapshotFlag(v *viper.Viper) string {
	return v.GetString("snapshot")
}

func addSnapshotFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("snapshot", "", "Snapshot id, id prefix or HEAD~n (default latest)")
	_ = v.BindPFlag("snapshot", flags.Lookup("snapshot"))
}

func outputFlag(v *viper.Viper) string {
	return v.GetString("output")
}

func addOutputFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.StringP("output", "o", outputJSON, "Output format: json or yaml")
	_ = v.BindPFlag("output", flags.Lookup("output"))
	_ = v.BindEnv("output", "GITDB_OUTPUT")
}

func limitFlag(v *viper.Viper) int {
	return v.GetInt("limit")
}

func addLimitFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.IntP("limit", "n", 0, "Maximum number of snapshots, 0 for all")
	_ = v.BindPFlag("limit", flags.Lookup("limit"))
}

func addressFlag(v *viper.Viper) string {
	return v.GetString("address")
}

func addAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("address", ":8080", "Address to bind to (host:port)")
	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindEnv("address", "GITDB_ADDRESS")
}

func basePathFlag(v *viper.Viper) string {
	return v.GetString("base_path")
}

func addBasePathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("base-path", "/gitdb", "Base path to export the webserver on")
	_ = v.BindPFlag("base_path", flags.Lookup("base-path"))
	_ = v.BindEnv("base_path", "GITDB_BASE_PATH")
}

func gracefulPeriodFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("graceful_period")
}

func addGracefulPeriodFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("graceful-period", 0, "Graceful period before shutting down")
	_ = v.BindPFlag("graceful_period", flags.Lookup("graceful-period"))
	_ = v.BindEnv("graceful_period", "GITDB_GRACEFUL_PERIOD")
}

func serviceHealthzEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.healthz.enabled")
}

func addServiceHealthzEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-healthz-enabled", false, "Enable healthz service")
	_ = v.BindPFlag("service.healthz.enabled", flags.Lookup("service-healthz-enabled"))
}

func servicePrometheusEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.prometheus.enabled")
}

func addServicePrometheusEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-prometheus-enabled", false, "Enable prometheus service")
	_ = v.BindPFlag("service.prometheus.enabled", flags.Lookup("service-prometheus-enabled"))
}

func otelEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("otel.enabled")
}

func addOtelEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("otel-enabled", false, "Enable otel service")
	_ = v.BindPFlag("otel.enabled", flags.Lookup("otel-enabled"))
	_ = v.BindEnv("otel.enabled", "OTEL_ENABLED")
}
