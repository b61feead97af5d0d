package listing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"auction-house/internal/auctionerrors"
	bidding "auction-house/internal/biddingService"
	model "auction-house/internal/models"
	"auction-house/internal/repository"
)

func setup(t *testing.T) (*repository.MemoryRepo, *ListingService) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	for _, id := range []string{"seller", "alice", "bob"} {
		require.NoError(t, repo.CreateUser(context.Background(), model.User{UserID: id, Username: id, CreatedAt: time.Now()}))
	}
	return repo, NewListingService(repo)
}

func validListing() NewListing {
	return NewListing{
		Title:         "  Brass lamp ",
		Description:   "Polished, works fine",
		StartingPrice: decimal.RequireFromString("12.50"),
		CreatorID:     "seller",
		ImageURL:      "https://img.example.com/lamp.jpg",
	}
}

// Tests CreateListing
func TestListingService_CreateListing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		mutate        func(in *NewListing)
		expectedError error
	}{
		{name: "valid_listing", mutate: func(in *NewListing) {}},
		{name: "no_image", mutate: func(in *NewListing) { in.ImageURL = "" }},
		{name: "empty_title", mutate: func(in *NewListing) { in.Title = "   " }, expectedError: auctionerrors.ErrValidation},
		{name: "title_too_long", mutate: func(in *NewListing) { in.Title = strings.Repeat("x", MaxTitleLength+1) }, expectedError: auctionerrors.ErrValidation},
		{name: "title_at_limit", mutate: func(in *NewListing) { in.Title = strings.Repeat("é", MaxTitleLength) }},
		{name: "padded_title_at_limit", mutate: func(in *NewListing) { in.Title = "  " + strings.Repeat("x", MaxTitleLength) + "  " }},
		{name: "empty_description", mutate: func(in *NewListing) { in.Description = "" }, expectedError: auctionerrors.ErrValidation},
		{name: "description_too_long", mutate: func(in *NewListing) { in.Description = strings.Repeat("x", MaxDescriptionLength+1) }, expectedError: auctionerrors.ErrValidation},
		{name: "zero_price", mutate: func(in *NewListing) { in.StartingPrice = decimal.Zero }, expectedError: auctionerrors.ErrValidation},
		{name: "price_too_precise", mutate: func(in *NewListing) { in.StartingPrice = decimal.RequireFromString("1.234") }, expectedError: auctionerrors.ErrValidation},
		{name: "price_too_large", mutate: func(in *NewListing) { in.StartingPrice = bidding.MaxAmount.Add(decimal.RequireFromString("0.01")) }, expectedError: auctionerrors.ErrValidation},
		{name: "bad_image_url", mutate: func(in *NewListing) { in.ImageURL = "not a url" }, expectedError: auctionerrors.ErrValidation},
		{name: "ftp_image_url", mutate: func(in *NewListing) { in.ImageURL = "ftp://example.com/x.jpg" }, expectedError: auctionerrors.ErrValidation},
		{name: "missing_creator", mutate: func(in *NewListing) { in.CreatorID = "" }, expectedError: auctionerrors.ErrValidation},
		{name: "unknown_creator", mutate: func(in *NewListing) { in.CreatorID = "ghost" }, expectedError: auctionerrors.ErrUserNotFound},
		{name: "unknown_category", mutate: func(in *NewListing) { in.CategoryID = "nope" }, expectedError: auctionerrors.ErrCategoryNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo, service := setup(t)
			in := validListing()
			tc.mutate(&in)

			auction, err := service.CreateListing(context.Background(), in)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, auction.AuctionID)
			require.True(t, auction.Active)
			require.True(t, auction.StartingPrice.Equal(auction.CurrentPrice))
			require.Equal(t, strings.TrimSpace(in.Title), auction.Title)
			require.False(t, auction.HasWinner())

			stored, err := repo.GetAuction(context.Background(), auction.AuctionID)
			require.NoError(t, err)
			require.Equal(t, auction, stored)
		})
	}
}

// Tests GetListing
func TestListingService_GetListing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, service := setup(t)
	ledger := bidding.NewBiddingService(repo)

	auction, err := service.CreateListing(ctx, validListing())
	require.NoError(t, err)
	_, err = ledger.PlaceBid(ctx, auction.AuctionID, "alice", decimal.RequireFromString("13"))
	require.NoError(t, err)
	_, err = ledger.PlaceBid(ctx, auction.AuctionID, "bob", decimal.RequireFromString("14"))
	require.NoError(t, err)
	_, err = service.PostComment(ctx, auction.AuctionID, "alice", "Does it come with a bulb?")
	require.NoError(t, err)
	require.NoError(t, service.Watch(ctx, "alice", auction.AuctionID))

	tests := []struct {
		name       string
		viewerID   string
		wantWatch  bool
		wantOwn    bool
		wantLead   bool
		wantWinner bool
	}{
		{name: "anonymous"},
		{name: "seller", viewerID: "seller", wantOwn: true},
		{name: "outbid_watcher", viewerID: "alice", wantWatch: true},
		{name: "leading_bidder", viewerID: "bob", wantLead: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			detail, err := service.GetListing(ctx, auction.AuctionID, tc.viewerID)
			require.NoError(t, err)
			require.Len(t, detail.Bids, 2)
			require.Equal(t, "bob", detail.Bids[0].BidderID)
			require.Len(t, detail.Comments, 1)
			require.True(t, decimal.RequireFromString("14").Equal(detail.Auction.CurrentPrice))
			require.Equal(t, tc.wantWatch, detail.OnWatchlist)
			require.Equal(t, tc.wantOwn, detail.OwnListing)
			require.Equal(t, tc.wantLead, detail.Leading)
			require.Equal(t, tc.wantWinner, detail.Won)
		})
	}

	t.Run("after_close_winner_sees_won", func(t *testing.T) {
		_, err := ledger.CloseAuction(ctx, auction.AuctionID, "seller")
		require.NoError(t, err)

		detail, err := service.GetListing(ctx, auction.AuctionID, "bob")
		require.NoError(t, err)
		require.True(t, detail.Won)
		require.False(t, detail.Leading)
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := service.GetListing(ctx, "missing", "bob")
		require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
	})
}

// Tests the listing index filters
func TestListingService_ListListings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, service := setup(t)
	ledger := bidding.NewBiddingService(repo)

	books, err := service.CreateCategory(ctx, "Books")
	require.NoError(t, err)

	in := validListing()
	in.CategoryID = books.CategoryID
	novel, err := service.CreateListing(ctx, in)
	require.NoError(t, err)

	in = validListing()
	in.CreatorID = "alice"
	lamp, err := service.CreateListing(ctx, in)
	require.NoError(t, err)

	_, err = ledger.PlaceBid(ctx, lamp.AuctionID, "bob", decimal.RequireFromString("20"))
	require.NoError(t, err)
	_, err = ledger.CloseAuction(ctx, lamp.AuctionID, "alice")
	require.NoError(t, err)

	active := true
	tests := []struct {
		name   string
		filter model.AuctionFilter
		want   []string
	}{
		{name: "all", filter: model.AuctionFilter{}, want: []string{lamp.AuctionID, novel.AuctionID}},
		{name: "active", filter: model.AuctionFilter{Active: &active}, want: []string{novel.AuctionID}},
		{name: "created_by_alice", filter: model.AuctionFilter{CreatorID: "alice"}, want: []string{lamp.AuctionID}},
		{name: "won_by_bob", filter: model.AuctionFilter{WinnerID: "bob"}, want: []string{lamp.AuctionID}},
		{name: "in_books", filter: model.AuctionFilter{CategoryID: books.CategoryID}, want: []string{novel.AuctionID}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := service.ListListings(ctx, tc.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.AuctionID)
			}
			require.Equal(t, tc.want, ids)
		})
	}

	t.Run("category_listings_only_active", func(t *testing.T) {
		in := validListing()
		in.CategoryID = books.CategoryID
		in.CreatorID = "alice"
		closed, err := service.CreateListing(ctx, in)
		require.NoError(t, err)
		_, err = ledger.CloseAuction(ctx, closed.AuctionID, "alice")
		require.NoError(t, err)

		category, auctions, err := service.CategoryListings(ctx, books.CategoryID)
		require.NoError(t, err)
		require.Equal(t, "Books", category.Name)
		require.Len(t, auctions, 1)
		require.Equal(t, novel.AuctionID, auctions[0].AuctionID)
	})

	t.Run("unknown_category", func(t *testing.T) {
		_, _, err := service.CategoryListings(ctx, "nope")
		require.ErrorIs(t, err, auctionerrors.ErrCategoryNotFound)
	})
}

// Tests categories
func TestListingService_Categories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, service := setup(t)

	_, err := service.CreateCategory(ctx, "Toys")
	require.NoError(t, err)
	_, err = service.CreateCategory(ctx, " Art ")
	require.NoError(t, err)

	_, err = service.CreateCategory(ctx, "Toys")
	require.ErrorIs(t, err, auctionerrors.ErrCategoryExists)

	_, err = service.CreateCategory(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrValidation)

	_, err = service.CreateCategory(ctx, strings.Repeat("c", MaxCategoryNameLength+1))
	require.ErrorIs(t, err, auctionerrors.ErrValidation)

	categories, err := service.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	require.Equal(t, "Art", categories[0].Name)
	require.Equal(t, "Toys", categories[1].Name)
}

// Tests the watchlist toggles
func TestListingService_Watchlist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, service := setup(t)

	auction, err := service.CreateListing(ctx, validListing())
	require.NoError(t, err)

	// adding twice leaves a single membership
	require.NoError(t, service.Watch(ctx, "alice", auction.AuctionID))
	require.NoError(t, service.Watch(ctx, "alice", auction.AuctionID))

	watched, err := service.Watchlist(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, watched, 1)

	watching, err := service.IsWatching(ctx, "alice", auction.AuctionID)
	require.NoError(t, err)
	require.True(t, watching)

	// removing a non-member is a no-op
	require.NoError(t, service.Unwatch(ctx, "bob", auction.AuctionID))
	require.NoError(t, service.Unwatch(ctx, "alice", auction.AuctionID))
	require.NoError(t, service.Unwatch(ctx, "alice", auction.AuctionID))

	watched, err = service.Watchlist(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, watched)

	require.ErrorIs(t, service.Watch(ctx, "alice", "missing"), auctionerrors.ErrAuctionNotFound)
	require.ErrorIs(t, service.Watch(ctx, "", auction.AuctionID), auctionerrors.ErrValidation)
	require.ErrorIs(t, service.Unwatch(ctx, "alice", ""), auctionerrors.ErrValidation)

	_, err = service.Watchlist(ctx, "")
	require.ErrorIs(t, err, auctionerrors.ErrValidation)
}

// Tests the comment board
func TestListingService_Comments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, service := setup(t)

	auction, err := service.CreateListing(ctx, validListing())
	require.NoError(t, err)

	tests := []struct {
		name          string
		auctionID     string
		authorID      string
		text          string
		expectedError error
	}{
		{name: "valid_comment", auctionID: auction.AuctionID, authorID: "alice", text: "  Nice lamp  "},
		{name: "comment_at_limit", auctionID: auction.AuctionID, authorID: "bob", text: strings.Repeat("ü", MaxCommentLength)},
		{name: "empty_comment", auctionID: auction.AuctionID, authorID: "alice", text: " \n\t ", expectedError: auctionerrors.ErrValidation},
		{name: "oversize_comment", auctionID: auction.AuctionID, authorID: "alice", text: strings.Repeat("x", MaxCommentLength+1), expectedError: auctionerrors.ErrValidation},
		{name: "missing_author", auctionID: auction.AuctionID, authorID: "", text: "hi", expectedError: auctionerrors.ErrValidation},
		{name: "unknown_author", auctionID: auction.AuctionID, authorID: "ghost", text: "hi", expectedError: auctionerrors.ErrUserNotFound},
		{name: "unknown_auction", auctionID: "missing", authorID: "alice", text: "hi", expectedError: auctionerrors.ErrAuctionNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			comment, err := service.PostComment(ctx, tc.auctionID, tc.authorID, tc.text)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, strings.TrimSpace(tc.text), comment.Content)
		})
	}

	// closed auctions still take comments
	_, err = bidding.NewBiddingService(repo).CloseAuction(ctx, auction.AuctionID, "seller")
	require.NoError(t, err)
	_, err = service.PostComment(ctx, auction.AuctionID, "bob", "Congrats")
	require.NoError(t, err)

	comments, err := service.ListComments(ctx, auction.AuctionID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	require.Equal(t, "Nice lamp", comments[0].Content)
	require.Equal(t, "Congrats", comments[2].Content)
}

func TestListingService_RepoErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockListingDB(ctrl)
	service := NewListingService(mockRepo)
	ctx := context.Background()
	dbErr := errors.New("db failure")

	mockRepo.EXPECT().GetAuction(gomock.Any(), "a1").Return(model.Auction{AuctionID: "a1"}, nil)
	mockRepo.EXPECT().GetBidsByAuction(gomock.Any(), "a1").Return(nil, dbErr)
	_, err := service.GetListing(ctx, "a1", "")
	require.ErrorIs(t, err, dbErr)

	mockRepo.EXPECT().ListAuctions(gomock.Any(), gomock.Any()).Return(nil, dbErr)
	_, err = service.ListListings(ctx, model.AuctionFilter{})
	require.ErrorIs(t, err, dbErr)

	mockRepo.EXPECT().ListCategories(gomock.Any()).Return(nil, dbErr)
	_, err = service.ListCategories(ctx)
	require.ErrorIs(t, err, dbErr)

	mockRepo.EXPECT().AddComment(gomock.Any(), gomock.Any()).Return(dbErr)
	_, err = service.PostComment(ctx, "a1", "alice", "hi")
	require.ErrorIs(t, err, dbErr)

	mockRepo.EXPECT().IsWatching(gomock.Any(), "alice", "a1").Return(false, dbErr)
	_, err = service.IsWatching(ctx, "alice", "a1")
	require.ErrorIs(t, err, dbErr)
}
