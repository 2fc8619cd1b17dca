package enums

// NotificationChannel identifies how a notification was delivered.
type NotificationChannel string

const NotificationChannelEmail NotificationChannel = "email"

var notificationChannels = []NotificationChannel{NotificationChannelEmail}

func (n NotificationChannel) IsValid() bool { return known(notificationChannels, n) }

func ParseNotificationChannel(value string) (NotificationChannel, error) {
	return parse(notificationChannels, value, "notification channel", false)
}
