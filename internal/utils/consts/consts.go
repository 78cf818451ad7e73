package consts

const (
	ServiceName = "discoveer"
	ProjectName = "discoveer/syncd"

	// PlaceholderAvatarURL renders a deterministic avatar for the given seed.
	PlaceholderAvatarURL = "https://api.dicebear.com/7.x/avataaars/svg?seed=%v"
)
