package main

import "github.com/NibrasoftNet/lift-eat-mobile-sub003/cmd/lifteat"

func main() {
	lifteat.Execute()
}
