// Package route implements the output naming policy for build artifacts.
//
// Every artifact the bundler emits is classified by an ordered, total
// decision table and placed under a directory chosen by that classification:
//
//	entry-script, dependent-script  -> js/[name].js
//	asset with an image extension   -> images/[name][extname]
//	any other asset                 -> css/[name][extname]
//
// The mapping is a pure function of (kind, logical name, extension). It holds
// no state and may be called concurrently.
package route
