package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"laptudirm.com/x/boardlink/internal/boardlink/cmd"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
	})
	logrus.SetLevel(logrus.InfoLevel)

	if err := boardlink(); err != nil {
		logrus.Fatal(err)
	}
}

func boardlink() error {
	root := cmd.Root()
	root.SetArgs(os.Args[1:])
	return root.Execute()
}
