package main

//go:generate swag init -g cmd/stockwatch/main.go -o docs

// @title           stockwatch API
// @version         0.1.0
// @description     200-day moving average dip alerts for a personal stock portfolio.
// @host            localhost:8000
// @BasePath        /
// @schemes         http
