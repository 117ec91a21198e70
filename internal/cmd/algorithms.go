package cmd

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/ee"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

func newAlgorithmsCmd() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "algorithms [name]",
		Short: "List or describe Earth Engine algorithms",
		Long: `List the algorithm names the API exposes, or describe one algorithm's
signature.

The algorithms listing rarely changes, so responses are cached on disk
under the user cache directory. Use --no-cache to force a fresh fetch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := algorithmsClient(ctx, noCache)
			if err != nil {
				return err
			}

			algorithms, err := client.Algorithms(ctx)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				algo, ok := algorithms[args[0]]
				if !ok {
					return ctxerrors.NotFoundError("algorithm", args[0])
				}
				return printerForContext(ctx).Print(ctx, map[string]interface{}{
					"name":        args[0],
					"description": algo.Description,
					"returns":     algo.Returns,
					"args":        algo.Args,
					"deprecated":  algo.Deprecated,
				})
			}

			names := make([]string, 0, len(algorithms))
			for name, algo := range algorithms {
				if algo.Hidden {
					continue
				}
				names = append(names, name)
			}
			sort.Strings(names)

			return printerForContext(ctx).Print(ctx, map[string]interface{}{"results": names})
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the on-disk response cache")

	return cmd
}

// algorithmsClient builds a client whose GETs go through an HTTP disk
// cache, honoring the cache headers the API sends.
func algorithmsClient(ctx context.Context, noCache bool) (*ee.Client, error) {
	creds, _, err := resolveCredentials(ctx)
	if err != nil {
		return nil, ctxerrors.AuthRequiredError(err)
	}

	client := NewEEClient(ctx, tokenSourceFunc(creds))
	if noCache {
		return client, nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		// No cache dir is not fatal; fall back to uncached requests.
		return client, nil
	}

	transport := httpcache.NewTransport(diskcache.New(filepath.Join(cacheDir, "earthengine-cli", "httpcache")))
	client.WithHTTPClient(&http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	})
	return client, nil
}
