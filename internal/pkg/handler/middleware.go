package handler

import (
	"net/http"

	"github.com/NYTimes/gziphandler"
)

// Compress gzips responses for clients that accept it.
func Compress(next http.Handler) http.Handler {
	return gziphandler.GzipHandler(next)
}
