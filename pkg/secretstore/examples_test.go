package secretstore_test

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// ExampleParseCoordinate shows how a stored reference maps back to a slot and version.
func ExampleParseCoordinate() {
	coord, err := secretstore.ParseCoordinate("workspace_prod_secret_db_v3")
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(coord.Base)
	fmt.Println(coord.Version)
	fmt.Println(coord.Next())

	// Output:
	// workspace_prod_secret_db
	// 3
	// workspace_prod_secret_db_v4
}

// ExampleNewBase builds the base used for a new connector secret.
func ExampleNewBase() {
	ws := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	id := uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

	coord, _ := secretstore.NewCoordinate(secretstore.NewBase(secretstore.WorkspacePrefix, ws, id), 1)
	fmt.Println(coord)

	// Output:
	// workspace_00000000-0000-0000-0000-000000000001_secret_00000000-0000-0000-0000-0000000000aa_v1
}

// ExampleReadFunc adapts a lookup function into a Reader.
func ExampleReadFunc() {
	reader := secretstore.ReadFunc(func(_ context.Context, c secretstore.Coordinate) (string, bool, error) {
		if c.Version == 1 {
			return "abc", true, nil
		}
		return "", false, nil
	})

	_, found, _ := reader.Read(context.Background(), secretstore.MustParseCoordinate("slot_v2"))
	fmt.Println(found)

	// Output:
	// false
}
