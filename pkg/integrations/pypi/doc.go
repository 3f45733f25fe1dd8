// Package pypi provides an HTTP client for the Python Package Index JSON API.
//
// # Usage
//
//	client := pypi.NewClient(backend, 24*time.Hour) // cache TTL
//	meta, err := client.FetchPackage(ctx, "anyio", false) // false = use cache
//	if err != nil {
//	    return err
//	}
//	fmt.Println(meta.Name, meta.Version, meta.RequiresDist)
//
// # Metadata
//
// [Client.FetchPackage] requests <base>/<name>/json and returns a [Metadata]
// built from the response's info object. Dependency expressions are returned
// verbatim; parsing and marker evaluation belong to the pep508 package.
//
// # Caching
//
// Responses are cached under the "pypi:" namespace of the backend passed to
// [NewClient]. Pass refresh=true to bypass the cache.
package pypi
