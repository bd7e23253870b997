package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type publication struct {
	topic   string
	qos     byte
	payload []byte
}

type subscription struct {
	topic   string
	qos     byte
	handler paho.MessageHandler
}

// fakeBroker stands in for a connected paho client. Publish failures are
// consumed in order from failures.
type fakeBroker struct {
	mu        sync.Mutex
	opts      *paho.ClientOptions
	subs      []subscription
	published []publication
	failures  []error
}

// useFakeBroker makes NewPahoClient connect to b for the rest of the test.
func useFakeBroker(t *testing.T, b *fakeBroker) {
	t.Helper()
	prev := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient {
		b.opts = o
		return b
	}
	t.Cleanup(func() { newMQTTClient = prev })
}

func (b *fakeBroker) IsConnected() bool { return true }

func (b *fakeBroker) Connect() paho.Token {
	if b.opts != nil && b.opts.OnConnect != nil {
		b.opts.OnConnect(b)
	}
	return fakeToken{}
}

func (b *fakeBroker) Disconnect(uint) {}

func (b *fakeBroker) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, _ := payload.([]byte)
	b.published = append(b.published, publication{topic: topic, qos: qos, payload: data})
	if len(b.failures) == 0 {
		return fakeToken{}
	}
	err := b.failures[0]
	b.failures = b.failures[1:]
	return fakeToken{err: err}
}

func (b *fakeBroker) Subscribe(topic string, qos byte, h paho.MessageHandler) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{topic: topic, qos: qos, handler: h})
	return fakeToken{}
}

// The remaining methods complete paho.Client, which OnConnect receives.
func (b *fakeBroker) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return fakeToken{}
}
func (b *fakeBroker) Unsubscribe(...string) paho.Token        { return fakeToken{} }
func (b *fakeBroker) AddRoute(string, paho.MessageHandler)    {}
func (b *fakeBroker) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (b *fakeBroker) IsConnectionOpen() bool                  { return true }

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMessage struct {
	topic string
	p     []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.p }
func (m fakeMessage) Ack()              {}
