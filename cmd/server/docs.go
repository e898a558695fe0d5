package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Option Chains API
// @version         0.1.0
// @description     Rolled options chain detection, stored chains, and detection runs.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
