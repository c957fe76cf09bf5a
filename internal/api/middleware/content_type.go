package middleware

import (
	"mime"
	"net/http"

	"github.com/argodesk/argodesk/internal/api/models"
)

// RequireJSON rejects request bodies that are not declared as JSON.
// Requests without a Content-Type are let through.
func RequireJSON(next http.Handler) http.Handler {
	return requireMediaType("application/json", true, next)
}

// RequireMultipart rejects requests that are not multipart/form-data.
func RequireMultipart(next http.Handler) http.Handler {
	return requireMediaType("multipart/form-data", false, next)
}

func requireMediaType(want string, allowMissing bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" || !allowMissing {
				mediaType, _, err := mime.ParseMediaType(contentType)
				if err != nil || mediaType != want {
					problem := models.NewUnsupportedMediaType(GetRequestID(r.Context()), "Content-Type must be "+want)
					problem.Instance = r.URL.Path
					problem.Write(w)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
