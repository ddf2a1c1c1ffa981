package route

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"hearth/src-server/utils"
)

func SPA(muxer *http.ServeMux, as *utils.AppState) {
	files := http.FS(os.DirFS(as.Config.GetStaticWebClientDir()))
	if file, err := files.Open("index.html"); err != nil {
		slog.Error("Can't open index.html", "err", err)
		return
	} else {
		file.Close()
	}

	// a shared index handle would race on its seek offset
	serveIndex := func(w http.ResponseWriter, r *http.Request) {
		indexFile, err := files.Open("index.html")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't open index.html"))
			return
		}
		defer indexFile.Close()
		stat, err := indexFile.Stat()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get index.html stat"))
			return
		}
		http.ServeContent(w, r, stat.Name(), stat.ModTime(), indexFile)
	}

	muxer.HandleFunc("GET /{filepath...}", func(w http.ResponseWriter, r *http.Request) {
		filepath := filepath.Clean(r.PathValue("filepath"))
		switch filepath {
		case ".":
			filepath = "index.html"
		case "groceries", "todos", "payment-reminders", "login":
			filepath = filepath + "/index.html"
		}

		file, err := files.Open(filepath)
		if err != nil {
			serveIndex(w, r)
			return
		}
		defer file.Close()

		stat, err := file.Stat()
		if err != nil {
			serveIndex(w, r)
			return
		}

		http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
	})
}
