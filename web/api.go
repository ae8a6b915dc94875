package main

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cebers1010/sam3d-v2/commons"
	"github.com/cebers1010/sam3d-v2/datastructures"
	"github.com/garyburd/redigo/redis"
	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func corsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, X-PINGOTHER, X-File-Name, Cache-Control")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
}

func newRouter(indexFile string) *gin.Engine {
	router := gin.Default()

	if indexFile != "" {
		router.StaticFile("/", indexFile)
	}

	router.OPTIONS("/v1/reconstruct", func(c *gin.Context) {
		corsHeaders(c)
		c.JSON(http.StatusOK, struct{}{})
	})

	router.POST("/v1/reconstruct", func(c *gin.Context) {
		corsHeaders(c)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location")

		file, _, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(400, gin.H{"error": "Picture is missing"})
			return
		}
		defer file.Close()

		imageData, err := io.ReadAll(file)
		if err != nil {
			c.JSON(400, gin.H{"error": "Picture is missing"})
			return
		}

		requestUuid, err := commons.NewRunId()
		if err != nil {
			log.Debug("[Reconstruct] Couldn't accept request: ", err.Error())
			c.JSON(500, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}

		//add a reconstruction request to the REDIS 'reconstructme' queue
		var request datastructures.ReconstructionRequest
		request.Uuid = requestUuid
		request.Created = int64(time.Now().Unix())
		request.Image = base64.StdEncoding.EncodeToString(imageData)

		serialized, err := json.Marshal(request)
		if err != nil {
			log.Debug("[Reconstruct] Couldn't accept request: ", err.Error())
			c.JSON(500, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}

		redisConn := redisPool.Get()
		defer redisConn.Close()

		_, err = redisConn.Do("RPUSH", commons.ReconstructQueue, serialized)
		if err != nil {
			log.Debug("[Reconstruct] Couldn't accept request: ", err.Error())
			raven.CaptureError(err, nil)
			c.JSON(500, gin.H{"error": "Couldn't accept request - please try again later"})
			return
		}

		c.Writer.Header().Set("Location", requestUuid)
		c.JSON(202, gin.H{})
	})

	router.GET("/v1/reconstruct/:uuid", func(c *gin.Context) {
		corsHeaders(c)

		result, exists, err := getResult(c.Param("uuid"))
		if err != nil {
			log.Debug("[Reconstruct] Couldn't check status of request: ", err.Error())
			c.JSON(500, gin.H{"error": "Couldn't check status of request - please try again later"})
			return
		}

		if !exists { //nothing available yet. Which means either the uuid is wrong or processing isn't finished.
			//at this point we don't care for the reason.
			c.JSON(200, gin.H{})
			return
		}

		if result.Error != "" {
			c.JSON(200, gin.H{"error": "Couldn't process request (" + result.Error + ")"})
			return
		}

		c.JSON(200, gin.H{"filename": result.Filename,
			"ply_url": "/v1/reconstruct/" + result.Uuid + "/ply"})
	})

	router.GET("/v1/reconstruct/:uuid/ply", func(c *gin.Context) {
		corsHeaders(c)

		result, exists, err := getResult(c.Param("uuid"))
		if err != nil {
			log.Debug("[Reconstruct] Couldn't get result: ", err.Error())
			c.JSON(500, gin.H{"error": "Couldn't get result - please try again later"})
			return
		}

		if !exists || result.Error != "" || result.Ply == "" {
			c.JSON(404, gin.H{"error": "No reconstruction available"})
			return
		}

		plyContent, err := base64.StdEncoding.DecodeString(result.Ply)
		if err != nil {
			log.Debug("[Reconstruct] Couldn't decode result: ", err.Error())
			c.JSON(500, gin.H{"error": "Couldn't get result - please try again later"})
			return
		}

		c.Writer.Header().Set("Content-Disposition", "attachment; filename="+result.Filename)
		c.Data(200, "application/octet-stream", plyContent)
	})

	return router
}

func getResult(requestUuid string) (datastructures.ReconstructionResult, bool, error) {
	var result datastructures.ReconstructionResult

	redisConn := redisPool.Get()
	defer redisConn.Close()

	//a single GET - checking EXISTS first would race with the result expiry
	data, err := redis.Bytes(redisConn.Do("GET", commons.ResultKey(requestUuid)))
	if err == redis.ErrNil {
		return result, false, nil
	}
	if err != nil {
		return result, false, err
	}

	err = json.Unmarshal(data, &result)
	if err != nil {
		return result, false, err
	}

	return result, true, nil
}
