// Package actions talks to the CI pipeline that runs setup-npmrc: it reads
// step inputs and repository context from the environment and publishes
// variables and secret masks for later steps.
//
// Outside GitHub Actions the same calls degrade to the current process
// environment, so the tool also works from a shell.
package actions
