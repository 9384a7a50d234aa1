// Package category maps file extensions to the folder a file is sorted into.
//
// A Resolver answers from its Cache when it can. Unknown extensions trigger
// a single lookup against a remote service; the extracted label, or the
// default category when the lookup fails, is memoized for the rest of the
// process lifetime:
//
//	cache := category.NewCache(map[string]string{"pdf": "PDF"})
//	r := category.NewResolver(cache, category.Options{
//	    BaseURL: "https://fileinfo.com/extension/",
//	    Pattern: `<td>Category</td><td><a href="/filetypes/.+?">(.*?)</a></td>`,
//	    Default: "other",
//	})
//	res := r.Resolve(ctx, category.Extension("report.PDF"))
//	// res.Category == "PDF", res.Source == category.SourceSeed
package category
