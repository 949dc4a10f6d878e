package server

import (
	"embed"
	"io/fs"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed all:dist
var embedFS embed.FS

// GetAssetsFS はアイコン等の静的ファイルを返す
func GetAssetsFS() http.FileSystem {
	// dist/assets のサブディレクトリを取得
	assetsFS, err := fs.Sub(embedFS, "dist/assets")
	if err != nil {
		log.Fatalf("埋め込みアセットファイルシステムの作成に失敗: %v", err)
	}
	return http.FS(assetsFS)
}

// getIndexHTML はキオスク画面のHTMLを返す
func getIndexHTML() []byte {
	data, err := embedFS.ReadFile("dist/index.html")
	if err != nil {
		log.Fatalf("埋め込みindex.htmlの読み込みに失敗: %v", err)
	}
	return data
}

// serveIndex はキオスク画面を返す
func serveIndex(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
}
