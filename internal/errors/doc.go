// Package errors provides structured, coded errors for vroute.
//
// Every error the router or the CLI surfaces to a developer carries:
//   - A stable code (e.g. "R002") that maps to a registered template
//   - A category (routing, plugin or config)
//   - A short message plus an optional longer detail
//   - An optional suggestion on how to fix the problem
//   - The wrapped cause, so errors.Is and errors.As keep working
//
// # Error Codes
//
//	R001  plugin hook failed
//	R002  invalid route pattern
//	R003  navigation failed
//	R004  invalid route manifest
//	R005  module load failed
//	R006  invalid configuration
//
// # Usage
//
//	err := errors.New("R002").
//	    WithDetail(`route "/user/:" has an empty parameter name`).
//	    WithSuggestion("Name every parameter segment, e.g. /user/:id").
//	    Wrap(cause)
//
//	fmt.Print(err.Format())
//	// Output:
//	// ERROR R002: Invalid route pattern
//	//
//	//   route "/user/:" has an empty parameter name
//	//
//	//   Hint: Name every parameter segment, e.g. /user/:id
package errors
