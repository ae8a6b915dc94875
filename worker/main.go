package main

import (
	"encoding/json"
	"flag"
	"time"

	"github.com/cebers1010/sam3d-v2/commons"
	"github.com/cebers1010/sam3d-v2/datastructures"
	"github.com/cebers1010/sam3d-v2/rembg"
	"github.com/cebers1010/sam3d-v2/setup"
	"github.com/garyburd/redigo/redis"
	log "github.com/sirupsen/logrus"
)

var redisPool *redis.Pool

func main() {
	log.SetLevel(log.DebugLevel)

	log.Debug("[Main] Starting SAM3D worker...")
	redisAddress := flag.String("redis-address", ":6379", "Address to the Redis server")
	redisMaxConnections := flag.Int("redis-max-connections", 10, "Max connections to Redis")
	maxWorkerQueueSize := flag.Int("max-worker-queue-size", 100, "The size of job queue")
	maxWorkers := flag.Int("max-workers", 1, "The number of workers to start")
	baseDir := flag.String("base-dir", ".", "Where the external repository and models live")
	skipSetup := flag.Bool("skip-setup", false, "Skip cloning the repository and downloading checkpoints")

	flag.Parse()

	if !*skipSetup {
		if err := setup.Run(*baseDir); err != nil {
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

	log.Debug("[Main] Starting Dispatcher...")

	remover := rembg.NewOnnxRemover(setup.MaskModelPath(*baseDir))
	reconstructor := NewReconstructor(setup.RepoPath(*baseDir), setup.ConfigPath(*baseDir), remover)

	jobQueue := make(chan Job, *maxWorkerQueueSize)
	dispatcher := NewDispatcher(jobQueue, *maxWorkers, reconstructor)
	dispatcher.run()

	for {
		var data []byte

		redisConn := redisPool.Get()

		data, err := redis.Bytes(redisConn.Do("LPOP", commons.ReconstructQueue))
		if err != nil {
			redisConn.Close()
			time.Sleep(time.Second) //nothing in queue, sleep for one sec
			continue
		}

		log.Debug("[Main] Got a new request to process")

		var request datastructures.ReconstructionRequest
		err = json.Unmarshal(data, &request)
		if err != nil {
			log.Debug("[Main] Couldn't unmarshal: ", err.Error())
			redisConn.Close()
			continue
		}

		jobQueue <- Job{Request: request}

		redisConn.Close()
	}
}
