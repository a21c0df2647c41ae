// cmd/main.go
package main

import (
	"vh-recruit-api/app"
)

// @title           VH Recruit API
// @version         1.0
// @description     Authentication backend for the VH recruiting site.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
