package main

import (
	"encoding/json"

	"github.com/cebers1010/sam3d-v2/commons"
	"github.com/cebers1010/sam3d-v2/datastructures"
	log "github.com/sirupsen/logrus"
)

// Job holds the attributes needed to perform unit of work.
type Job struct {
	Request datastructures.ReconstructionRequest
}

// Processor turns a queued reconstruction request into a result.
type Processor interface {
	Process(job Job) datastructures.ReconstructionResult
}

// NewWorker creates takes a numeric id and a channel w/ worker pool.
func NewWorker(id int, workerPool chan chan Job, processor Processor) Worker {
	return Worker{
		id:         id,
		jobQueue:   make(chan Job),
		workerPool: workerPool,
		quitChan:   make(chan bool),
		processor:  processor,
	}
}

type Worker struct {
	id         int
	jobQueue   chan Job
	workerPool chan chan Job
	quitChan   chan bool
	processor  Processor
}

func (w Worker) start() {
	log.Debug("[Worker] Worker ", w.id, " starting")

	go func() {
		for {
			// Add my jobQueue to the worker pool.
			w.workerPool <- w.jobQueue

			select {
			case job := <-w.jobQueue:
				// Dispatcher has added a job to my jobQueue.
				result := w.processor.Process(job)
				serialized := serializeResult(result)

				redisConn := redisPool.Get()
				key := commons.ResultKey(result.Uuid)
				//store result with an expiration time of 1hr...it doesn't make sense to store it longer
				_, err := redisConn.Do("SET", key, serialized, "EX", commons.ResultExpirySeconds)
				if err != nil {
					log.Debug("[Worker] Couldn't store reconstruction result: ", err.Error())
				}
				redisConn.Close()

			case <-w.quitChan:
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}
		}
	}()
}

// serializeResult never comes back empty handed: a result has to reach
// the store either way, otherwise the web client polls forever.
func serializeResult(result datastructures.ReconstructionResult) []byte {
	serialized, err := json.Marshal(result)
	if err != nil {
		log.Debug("[Worker] Couldn't marshal reconstruction result: ", err.Error())
		serialized, _ = json.Marshal(datastructures.ReconstructionResult{
			Uuid:  result.Uuid,
			Error: "Couldn't serialize reconstruction result",
		})
	}
	return serialized
}

func (w Worker) stop() {
	go func() {
		w.quitChan <- true
	}()
}

// NewDispatcher creates, and returns a new Dispatcher object.
func NewDispatcher(jobQueue chan Job, maxWorkers int, processor Processor) *Dispatcher {
	workerPool := make(chan chan Job, maxWorkers)

	return &Dispatcher{
		jobQueue:   jobQueue,
		maxWorkers: maxWorkers,
		workerPool: workerPool,
		processor:  processor,
	}
}

type Dispatcher struct {
	workerPool chan chan Job
	maxWorkers int
	jobQueue   chan Job
	processor  Processor
}

func (d *Dispatcher) run() {
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(i+1, d.workerPool, d.processor)
		worker.start()
	}

	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.jobQueue:
			go func() {
				workerJobQueue := <-d.workerPool
				workerJobQueue <- job
			}()
		}
	}
}
