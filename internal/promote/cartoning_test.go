package promote

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/staging"
)

func TestCartoning_BoxesInheritOrderVersion(t *testing.T) {
	mock := newMock(t)
	rec := newRecorder(mock)
	file := "CART_0001.txt"

	expectStaging(mock, staging.CartoningTable, file,
		cartonRow("BOX", "O1", "B1", "STD", "0,4", "2.5", "L1"),
		cartonRow("ORDER", " O1 ", "W1", "C001", "Dock 4", "R9", "1,5", "", "3", "DHL"),
		cartonRow("BOX", "O1", "B2", "STD", "0.4", "2.5", "L2"),
		cartonRow("ITEM", "O1", "B1", "SKU1", "Widget", "2", "EA"),
		cartonRow("BOX", "O9", "B9"),
		cartonRow("ITEM", "", "B1", "SKU2"),
		cartonRow("TRAILER", "x"),
	)
	expectMaxVersion(mock, "cartoning_order", 0, "O1")
	expectCopy(mock, "cartoning_order", model.FinalOrderColumns, 1)
	expectCopy(mock, "cartoning_box", model.FinalBoxColumns, 3)
	expectCopy(mock, "cartoning_item", model.FinalItemColumns, 1)

	out, err := Cartoning{}.Promote(context.Background(), rec, Run{File: file, At: testTime})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	orders := rec.copies["wms.cartoning_order"]
	require.Len(t, orders, 1)
	assert.Equal(t, "O1", orders[0][0])
	assert.Equal(t, 1, orders[0][9])
	assert.Equal(t, file, orders[0][10])
	assert.Equal(t, testTime, orders[0][11])
	assert.Equal(t, intPtr(3), orders[0][7])
	assert.Equal(t, pgtype.Numeric{}, orders[0][6], "blank weight is null")

	boxes := rec.copies["wms.cartoning_box"]
	require.Len(t, boxes, 3)
	assert.Equal(t, intPtr(1), boxes[0][6])
	assert.Equal(t, intPtr(1), boxes[1][6])
	assert.Nil(t, boxes[2][6], "box without an order in the file has no version")
	assert.Equal(t, boxes[0][3], boxes[1][3], "0,4 and 0.4 coerce to the same volume")

	items := rec.copies["wms.cartoning_item"]
	require.Len(t, items, 1)
	assert.Equal(t, intPtr(1), items[0][6])

	assert.Equal(t, 1, out.Counts["orders"])
	assert.Equal(t, 3, out.Counts["boxes"])
	assert.Equal(t, 1, out.Counts["discarded"])
	assert.Equal(t, 1, out.Counts["unknown"])
	assert.Equal(t, 1, out.Counts["orphans"])
	assert.Equal(t, "boxes=3 discarded=1 items=1 new=1 orders=1 orphans=1 repeated=0 unknown=1 updated=0", out.Message)
}

func TestCartoning_ExistingOrderGetsNextVersion(t *testing.T) {
	mock := newMock(t)
	rec := newRecorder(mock)
	file := "CART_0002.txt"

	expectStaging(mock, staging.CartoningTable, file,
		cartonRow("ORDER", "O1", "W1"),
		cartonRow("ORDER", "O1", "W1"),
		cartonRow("BOX", "O1", "B1"),
	)
	expectMaxVersion(mock, "cartoning_order", 4, "O1")
	expectCopy(mock, "cartoning_order", model.FinalOrderColumns, 1)
	expectCopy(mock, "cartoning_box", model.FinalBoxColumns, 1)

	out, err := Cartoning{}.Promote(context.Background(), rec, Run{File: file, At: testTime})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	orders := rec.copies["wms.cartoning_order"]
	require.Len(t, orders, 1, "one final row per distinct order")
	assert.Equal(t, 5, orders[0][9])
	assert.Equal(t, intPtr(5), rec.copies["wms.cartoning_box"][0][6])
	assert.Equal(t, 1, out.Counts["updated"])
	assert.Equal(t, 0, out.Counts["new"])
	assert.Equal(t, 1, out.Counts["repeated"])
}

func TestCartoning_DuplicateOrdersAndBoxesWrittenOnce(t *testing.T) {
	mock := newMock(t)
	rec := newRecorder(mock)
	file := "CART_0004.txt"

	expectStaging(mock, staging.CartoningTable, file,
		cartonRow("ORDER", "O1", "W1", "C001"),
		cartonRow("BOX", "O1", "B1", "STD", "0,4"),
		cartonRow("ORDER", "O1", "W1", "C999"),
		cartonRow("BOX", "O1", "B1", "XL", "9"),
		cartonRow("ITEM", "O1", "B1", "SKU1", "Widget", "2", "EA"),
		cartonRow("ITEM", "O1", "B1", "SKU1", "Widget", "2", "EA"),
		cartonRow("ITEM", "O1", "B1", "", "No sku", "1", "EA"),
	)
	expectMaxVersion(mock, "cartoning_order", 0, "O1")
	expectCopy(mock, "cartoning_order", model.FinalOrderColumns, 1)
	expectCopy(mock, "cartoning_box", model.FinalBoxColumns, 1)
	expectCopy(mock, "cartoning_item", model.FinalItemColumns, 3)

	out, err := Cartoning{}.Promote(context.Background(), rec, Run{File: file, At: testTime})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	orders := rec.copies["wms.cartoning_order"]
	require.Len(t, orders, 1)
	assert.Equal(t, "C001", orders[0][2], "first order row wins")

	boxes := rec.copies["wms.cartoning_box"]
	require.Len(t, boxes, 1)
	assert.Equal(t, "STD", boxes[0][2], "first box row wins")

	items := rec.copies["wms.cartoning_item"]
	require.Len(t, items, 3, "items are not deduplicated")
	assert.Equal(t, "", items[2][2], "blank sku is kept")
	for _, it := range items {
		assert.Equal(t, intPtr(1), it[6])
	}

	assert.Equal(t, 2, out.Counts["repeated"])
	assert.Equal(t, 0, out.Counts["discarded"])
	assert.Equal(t, 1, out.Counts["new"])
}

func TestCartoning_CopyError(t *testing.T) {
	mock := newMock(t)
	file := "CART_0003.txt"

	expectStaging(mock, staging.CartoningTable, file, cartonRow("ORDER", "O1"))
	expectMaxVersion(mock, "cartoning_order", 0, "O1")
	mock.ExpectCopyFrom(pgxIdent("cartoning_order"), model.FinalOrderColumns).
		WillReturnError(assert.AnError)

	_, err := Cartoning{}.Promote(context.Background(), mock, Run{File: file, At: testTime})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: COPY INTO wms.cartoning_order")
}
