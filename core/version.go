package core

// Build metadata, injected with:
//
//	go build -ldflags "-X pdf_summarizer/core.Version=v1.0.0 -X pdf_summarizer/core.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo formats the build metadata as "v1.0.0 (built <time>, commit <hash>)".
func VersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}
