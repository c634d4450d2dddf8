package main

import (
	"log"

	"github.com/yourusername/serverino"
)

func main() {
	app := serverino.New()

	app.Get("/hello", func(r *serverino.Request, w *serverino.Response) error {
		w.AddHeader("content-type", "application/json")
		w.WriteString(`{"message":"Hello, serverino!"}`)
		return nil
	})

	app.Get("/whoami", func(r *serverino.Request, w *serverino.Response) error {
		w.WriteString("request " + r.ID.String())
		return nil
	})

	app.HandleFunc("not-found", -1, nil, func(r *serverino.Request, w *serverino.Response) error {
		w.SetStatus(404)
		w.WriteString("not found")
		return nil
	})

	app.OnStartup(func() {
		log.Println("serverino: worker starting up")
	})

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
