// @title           CV Analyzer API
// @version         1.0
// @description     Resume analysis platform: uploads, AI extraction, credits, billing.
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:4000
// @BasePath        /api/v1

package main

import "cvanalyzer_backend/internal/app"

func main() {
	app.Run()
}
