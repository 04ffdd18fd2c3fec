package main

import "moim/internal/app"

// @title        moim identity API
// @version      1.0
// @description  Phone-number based identity: one-time code verification, invitation-gated sign-up, JWT token pairs.
func main() {
	app.Run()
}
