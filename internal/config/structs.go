package config

import (
	"github.com/makrcave/makrcave-access/internal/logger"
)

// Session holds login session defaults applied when neither role nor
// password policy override them.
type Session struct {
	TokenLifetime int // session lifetime in minutes
}

// Bootstrap holds first-run seeding settings.
type Bootstrap struct {
	AdminEmail    string // email of the bootstrap super admin
	AdminPassword string // initial password for the bootstrap super admin
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Session   Session
	Bootstrap Bootstrap
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
}
