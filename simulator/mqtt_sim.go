package main

import (
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/crisistriage/infra/mqtt"
)

var mqttClientFactory = realMQTTClient

func realMQTTClient(broker, clientID string) (paho.Client, error) {
	opts, err := mqtt.NewClientOptions(mqtt.Config{Broker: broker, ClientID: clientID})
	if err != nil {
		return nil, err
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
