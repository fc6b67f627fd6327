// +build exclude

package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Shopify/sarama"
)

var brokers string
var topic string

func init() {
	flag.StringVar(&brokers, "brokers", "localhost:9092", "broker address")
	flag.StringVar(&topic, "topic", "", "topic name")
	flag.Parse()
}

func main() {
	if topic == "" {
		println("error: specify topic with -topic option")
		os.Exit(1)
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer([]string{brokers}, config)
	if err != nil {
		println(err.Error())
		os.Exit(1)
	}
	defer producer.Close()

	for batchNo := 1; ; batchNo++ {
		load(producer, batchNo)
	}
}

func load(producer sarama.SyncProducer, batchNo int) {
	messages := make([]*sarama.ProducerMessage, 0, 100)
	buff := make([]byte, 16)
	for i := 0; i < 100; i++ {
		rand.Read(buff)
		data := hex.EncodeToString(buff)
		messages = append(messages, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(data),
			Value: sarama.StringEncoder(fmt.Sprintf("hey %s", data)),
		})
	}

	err := producer.SendMessages(messages)
	if err != nil {
		println(err.Error())
		println("healing...")
		time.Sleep(time.Second * 5)
		return
	}
	fmt.Printf("completed batch %d\n", batchNo)
}
