package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cebers1010/sam3d-v2/setup"
	"github.com/garyburd/redigo/redis"
	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var redisPool *redis.Pool

func main() {
	log.SetLevel(log.DebugLevel)

	releaseMode := flag.Bool("release", false, "Run in release mode")
	redisAddress := flag.String("redis-address", ":6379", "Address to the Redis server")
	redisMaxConnections := flag.Int("redis-max-connections", 50, "Max connections to Redis")
	listenAddress := flag.String("listen-address", ":8081", "Address the demo listens on")
	indexFile := flag.String("index-file", "../html/index.html", "Location of the demo page")
	skipSetup := flag.Bool("skip-setup", false, "Skip cloning the repository and downloading checkpoints")

	flag.Parse()
	if *releaseMode {
		fmt.Printf("[Main] Starting gin in release mode!\n")
		gin.SetMode(gin.ReleaseMode)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		raven.SetDSN(dsn)
	}

	//the worker performs the same bootstrap - whichever entry point comes
	//up first does the actual work, the other one finds everything in place
	if !*skipSetup {
		if err := setup.Run("."); err != nil {
			log.Fatal("[Main] Setup failed: ", err.Error())
		}
	}

	redisPool = redis.NewPool(func() (redis.Conn, error) {
		c, err := redis.Dial("tcp", *redisAddress)

		if err != nil {
			return nil, err
		}

		return c, err
	}, *redisMaxConnections)
	defer redisPool.Close()

	router := newRouter(*indexFile)
	router.Run(*listenAddress)
}
