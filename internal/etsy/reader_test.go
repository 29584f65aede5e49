package etsy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = "Order ID,Item Name,Item Total\n" +
	"100,Kerze,11.90\n" +
	"101,Seife,5.95\n"

func TestReadRows(t *testing.T) {
	rows, err := ReadRows(ordersCSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	id, ok := rows[0].ResolveField("order id")
	assert.True(t, ok)
	assert.Equal(t, "100", id)

	name, ok := rows[1].ResolveField("item name")
	assert.True(t, ok)
	assert.Equal(t, "Seife", name)
}

func TestReadRows_Empty(t *testing.T) {
	_, err := ReadRows("")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ReadRows("Order ID,Item Name\n")
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestReadRows_QuotedFields(t *testing.T) {
	csv := "Order ID,Item Name,Item Total\n" +
		"100,\"Kerze, groß\",11.90\n"
	rows, err := ReadRows(csv)
	require.NoError(t, err)

	name, ok := rows[0].ResolveField("item name")
	assert.True(t, ok)
	assert.Equal(t, "Kerze, groß", name)
}

func TestReadRows_RaggedRows(t *testing.T) {
	// Exports sometimes truncate trailing columns.
	csv := "Order ID,Item Name,Item Total\n" +
		"100,Kerze\n"
	rows, err := ReadRows(csv)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, ok := rows[0].ResolveField("item total")
	assert.False(t, ok)
}

func TestConcat_StripsRepeatedHeader(t *testing.T) {
	file1 := "Order ID,Item Name,Item Total\n100,Kerze,11.90\n"
	file2 := "Order ID,Item Name,Item Total\n200,Tasse,8.00\n"

	rows, err := ReadFiles([]string{file1, file2})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	id, _ := rows[1].ResolveField("order id")
	assert.Equal(t, "200", id)
}

func TestConcat_SecondFileWithoutHeader(t *testing.T) {
	file1 := "Order ID,Item Name,Item Total\n100,Kerze,11.90\n"
	file2 := "200,Tasse,8.00\n"

	rows, err := ReadFiles([]string{file1, file2})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestConcat_SkipsEmptyFiles(t *testing.T) {
	file1 := "Order ID,Item Name,Item Total\n100,Kerze,11.90\n"

	rows, err := ReadFiles([]string{file1, "", "\n"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadFiles_SharedOrderIDsStayMergeable(t *testing.T) {
	// Same order id in both files: downstream grouping must see both
	// rows under one id, so the reader only concatenates.
	file1 := "Order ID,Item Name,Item Total\n100,Kerze,11.90\n"
	file2 := "Order ID,Item Name,Item Total\n100,Docht,2.00\n"

	rows, err := ReadFiles([]string{file1, file2})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	id1, _ := rows[0].ResolveField("order id")
	id2, _ := rows[1].ResolveField("order id")
	assert.Equal(t, id1, id2)
}
