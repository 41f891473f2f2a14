package discover

var RootFor = rootFor
