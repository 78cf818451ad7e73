package projector

import (
	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
)

type (
	GroupInfo struct {
		ID          string
		Name        string
		Description string
		Creator     string
		IsPublic    bool
		MaxMembers  uint64
		MemberCount int
	}

	GroupRegistryStats struct {
		TotalGroups   uint64
		TotalMessages uint64
	}
)

// ProjectGroupInfo reads a group chat object. It returns nil for a missing group.
func ProjectGroupInfo(group *client.Object) *GroupInfo {
	if group == nil || !group.Exists {
		return nil
	}

	info := &GroupInfo{
		ID:          group.ID,
		Name:        group.String("name"),
		Description: group.String("description"),
		Creator:     group.String("creator"),
		IsPublic:    group.Bool("is_public"),
		MaxMembers:  group.U64("max_members"),
		MemberCount: group.Len("members"),
	}
	if info.MemberCount == 0 {
		info.MemberCount = int(group.U64("member_count"))
	}

	return info
}

func ProjectGroupRegistry(registry *client.Object) *GroupRegistryStats {
	if registry == nil || !registry.Exists {
		return &GroupRegistryStats{}
	}

	return &GroupRegistryStats{
		TotalGroups:   registry.U64("total_groups"),
		TotalMessages: registry.U64("total_messages"),
	}
}
