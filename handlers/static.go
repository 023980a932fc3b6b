package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the browser frontend from dir. /user_guide/* falls back
// to the guide's index, every other unknown GET falls back to index.html.
// An empty dir disables the frontend.
func mountStatic(r *gin.Engine, dir string) {
	if dir == "" {
		r.NoRoute(notFound)
		return
	}

	guideDir := filepath.Join(dir, "user_guide")
	r.GET("/user_guide/*path", func(c *gin.Context) {
		if p, ok := regularFile(guideDir, c.Param("path")); ok {
			c.File(p)
			return
		}
		c.File(filepath.Join(guideDir, "index.html"))
	})

	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	r.NoRoute(func(c *gin.Context) {
		method := c.Request.Method
		if (method != http.MethodGet && method != http.MethodHead) || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			notFound(c)
			return
		}
		if _, ok := regularFile(dir, c.Request.URL.Path); ok {
			files.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.File(index)
	})
}

// regularFile resolves urlPath under root and reports whether it is a file.
func regularFile(root, urlPath string) (string, bool) {
	p := filepath.Join(root, filepath.FromSlash(path.Clean("/"+urlPath)))
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return p, false
	}
	return p, true
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}
