package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fulldump/goconfig"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/mplewis/notekv/bootstrap"
	"github.com/mplewis/notekv/configuration"
)

var VERSION = "dev"

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", VERSION)
		return
	}

	if c.ShowConfig {
		err := json.MarshalWrite(os.Stdout, c, jsontext.WithIndent("    "))
		if err != nil {
			log.Println("ERROR:", err.Error())
		}
		fmt.Println()
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	sh, err := bootstrap.Bootstrap(&c, os.Stdin, os.Stdout, logger)
	if err != nil {
		log.Println("ERROR:", err.Error())
		os.Exit(-1)
	}
	log.Printf("using %s backing, namespace %q, locking %s", c.Backing, c.Namespace, c.Locking)

	if err := sh.Run(); err != nil {
		log.Println("ERROR:", err.Error())
		os.Exit(-1)
	}
}
