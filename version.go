package lakeshift

const version = "0.1.0"
