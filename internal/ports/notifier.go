package ports

import "github.com/bnema/chatsim/internal/domain"

type Notifier interface {
	Publish(delivery domain.Delivery)
}

type NotifierFunc func(delivery domain.Delivery)

func (f NotifierFunc) Publish(delivery domain.Delivery) {
	f(delivery)
}

type NopNotifier struct{}

func (NopNotifier) Publish(domain.Delivery) {}
