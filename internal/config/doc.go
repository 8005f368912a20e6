// Package config provides configuration parsing for vroute projects.
//
// The configuration is stored in vroute.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "name": "shop",
//	  "manifest": "routes.yaml",
//	  "server": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "metricsPath": "/metrics",
//	    "webSocketPath": "/_vroute/ws",
//	    "watch": true
//	  },
//	  "static": {
//	    "dir": "public",
//	    "prefix": "/static/",
//	    "shell": "index.html"
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  },
//	  "modules": {
//	    "source": "s3",
//	    "bucket": "shop-modules",
//	    "prefix": "v1/",
//	    "region": "eu-west-1"
//	  },
//	  "router": {
//	    "failClosedPlugins": false
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Address:", cfg.Address())
package config
