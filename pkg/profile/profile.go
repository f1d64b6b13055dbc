package profile

// Profile is an owner of subscriptions and Google credentials.
type Profile struct {
	Id          int
	Uid         string
	DisplayName string
	Timezone    string
}
