// Package navrouter implements client-side navigation routing for
// single-page applications.
//
// A Router maps URL path patterns to view renderers, intercepts in-app
// navigations reported by its Environment, runs plugins before each route
// change, updates the document title and commits the new route, optionally
// inside a view transition.
//
// The browser is never touched directly. Everything the router needs from
// it (location, navigate events, popstate, programmatic navigation, history
// state, title, view transitions) is consumed through the capability
// interfaces in env.go. pkg/memenv provides an in-memory implementation and
// pkg/wsenv one that mirrors a thin client over a WebSocket.
//
// # Navigation Sequence
//
// Each matched navigation runs the same sequence:
//  1. Global plugins, then route plugins, one at a time
//  2. Failed plugins are reported through OnError and skipped
//  3. The route's title is applied
//  4. The route is committed and OnRouteChanged listeners run,
//     inside a view transition when the environment offers one
//
// Sequences never overlap. A navigation that arrives while another is in
// flight waits for it to finish. Plugins must therefore not call Navigate
// synchronously from BeforeNavigation.
//
// # Usage
//
//	r := navrouter.New(env, []navrouter.Route{
//	    {Path: "/", Title: "Home", Render: home},
//	    {Path: "/user/:id", Title: "User", Render: user},
//	}, navrouter.WithPlugins(authPlugin))
//
//	r.OnRouteChanged(func(e navrouter.RouteChangedEvent) {
//	    paint(r.Render())
//	})
//
//	if err := r.Init(ctx); err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	err := r.Navigate(ctx, "/user/42", navrouter.WithState(Flash{"saved"}))
package navrouter
