// Package pattern compiles route path patterns and matches pathnames
// against them.
//
// Supported segment forms:
//
//	/about          static segment, matched literally (case-sensitive)
//	/user/:id       named segment, matches exactly one non-empty segment
//	/docs/:page?    optional named segment, only as the last segment
//	/files/*path    named catch-all, matches the rest of the path after
//	                "/files/"; bare "/files" does not match
//	/assets/*       anonymous catch-all, captured under the key "0"
//
// A trailing slash on the pathname is ignored. Static segments match both
// raw and percent-encoded pathnames, and captured values are
// percent-decoded.
//
// # Usage
//
//	p, err := pattern.Compile("/post/:id/comment/:commentId")
//	params, ok := p.Exec("/post/7/comment/42")
//	// params["id"] == "7", params["commentId"] == "42"
//
//	var dst struct {
//	    ID int `param:"id"`
//	}
//	err = pattern.Decode(params, &dst)
package pattern
