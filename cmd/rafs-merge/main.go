// Command rafs-merge drives one bootstrap merge (spec.md §4.H) from the
// command line: it loads the named per-layer manifests, an optional parent
// and chunk dictionary, merges them, and dumps the result to -target.
//
// Flag parsing follows the teacher's stdlib-flag CLI style (cmd/pk-get,
// cmd/pk): no cobra/pflag, just the standard library's flag package.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nydusgo/rafs/pkg/manifest"
	"github.com/nydusgo/rafs/pkg/merge"
)

// stringSlice collects repeated occurrences of a flag, e.g.
// -source a.json -source b.json.
type stringSlice []string

func (s *stringSlice) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		sources        stringSlice
		parentManifest = flag.String("parent", "", "path to a previously merged manifest to extend")
		chunkDict      = flag.String("chunk-dict", "", "path to a chunk-dictionary manifest")
		target         = flag.String("target", "", "destination path for the merged manifest (required)")
		blobAccessible = flag.Bool("blob-accessible", true, "treat layer blobs as remotely accessible by their declared blob_id")
		verbose        = flag.Bool("v", false, "enable debug logging")
	)
	flag.Var(&sources, "source", "path to a per-layer manifest, lower to higher (repeatable, required)")
	flag.Parse()

	if *target == "" || len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "usage: rafs-merge -source L1.json [-source L2.json ...] -target merged.json")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logCfg := zap.NewProductionConfig()
	if *verbose {
		logCfg = zap.NewDevelopmentConfig()
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rafs-merge: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx := merge.BuildContext{
		Manifest:       manifest.JSONCodec{},
		BlobAccessible: *blobAccessible,
		Logger:         sugar,
	}

	out, err := merge.New(ctx).Merge(merge.Params{
		ParentManifest: *parentManifest,
		Sources:        sources,
		ChunkDict:      *chunkDict,
		Target:         *target,
	})
	if err != nil {
		sugar.Fatalw("merge failed", "err", err)
	}

	sugar.Infow("merge succeeded", "target", out.ManifestPath, "blob_count", len(out.Blobs))
}
