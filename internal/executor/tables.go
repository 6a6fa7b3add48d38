package executor

// describeUsersRows is the fixed schema for DESC/DESCRIBE users, one of
// the server's read-only meta tables answered without any backing-store
// call.
var describeUsersRows = [][]Value{
	{str("id"), str("varchar(255)"), str("NO"), str("PRI"), null(), str("")},
	{str("name"), str("varchar(255)"), str("YES"), str(""), null(), str("")},
	{str("email"), str("varchar(255)"), str("YES"), str(""), null(), str("")},
	{str("age"), str("int"), str("YES"), str(""), null(), str("")},
	{str("created_at"), str("datetime"), str("YES"), str(""), null(), str("")},
}

var describeUsersColumns = []string{"Field", "Type", "Null", "Key", "Default", "Extra"}
