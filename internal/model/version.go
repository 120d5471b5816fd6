package model

// Version is the application version reported by --version and the update check.
const Version = "0.3.1"
